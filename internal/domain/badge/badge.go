// Package badge contains the achievement domain model. Badges are granted
// once per user when a logged session first satisfies their condition.
package badge

import (
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Type identifies one achievement.
type Type string

const (
	// TypeFirstSession - the very first logged practice.
	TypeFirstSession Type = "first_session"
	// TypeStreak3 - a 3-day practice streak.
	TypeStreak3 Type = "streak_3"
	// TypeStreak7 - a 7-day practice streak.
	TypeStreak7 Type = "streak_7"
	// TypeStreak30 - a 30-day practice streak.
	TypeStreak30 Type = "streak_30"
	// TypeMarathon - a single session of at least 60 minutes.
	TypeMarathon Type = "marathon"
	// TypePerfectFocus - a session rated focus 5.
	TypePerfectFocus Type = "perfect_focus"
	// TypeEarlyBird - a session started before 08:00 local time.
	TypeEarlyBird Type = "early_bird"
	// TypeNightOwl - a session started at or after 22:00 local time.
	TypeNightOwl Type = "night_owl"
)

// IsValid checks that the type is one of the known badges.
func (t Type) IsValid() bool {
	_, ok := definitions[t]
	return ok
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Badge is one achievement granted to a user.
type Badge struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// UserID is the badge holder.
	UserID string

	// Type identifies the achievement.
	Type Type

	// EarnedAt is when the qualifying session was logged.
	EarnedAt time.Time
}

// New creates a badge record.
func New(id, userID string, t Type, earnedAt time.Time) (*Badge, error) {
	if !t.IsValid() {
		return nil, shared.ErrUnknownBadge
	}
	return &Badge{ID: id, UserID: userID, Type: t, EarnedAt: earnedAt}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Context carries everything the badge conditions look at, captured after
// the session's streak and counters have been applied.
type Context struct {
	// StreakCount is the user's streak including the session being scored.
	StreakCount int

	// SessionCount is the user's total session count including this one.
	SessionCount int

	// DurationMinutes of the session.
	DurationMinutes int

	// FocusRating of the session, nil when unrated.
	FocusRating *int

	// StartTime of the session; time-of-day badges read its clock in Loc.
	StartTime time.Time

	// Loc is the application timezone for time-of-day rules.
	Loc *time.Location
}

func (c Context) startHour() int {
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	return c.StartTime.In(loc).Hour()
}

// Definition pairs a badge type with its qualifying condition.
type Definition struct {
	Type        Type
	Title       string
	Description string
	Qualifies   func(Context) bool
}

// Evaluation order is fixed so grants come out deterministic.
var order = []Type{
	TypeFirstSession,
	TypeStreak3,
	TypeStreak7,
	TypeStreak30,
	TypeMarathon,
	TypePerfectFocus,
	TypeEarlyBird,
	TypeNightOwl,
}

var definitions = map[Type]Definition{
	TypeFirstSession: {
		Type:        TypeFirstSession,
		Title:       "First Notes",
		Description: "Logged your first practice session",
		Qualifies:   func(c Context) bool { return c.SessionCount == 1 },
	},
	TypeStreak3: {
		Type:        TypeStreak3,
		Title:       "Warming Up",
		Description: "Practiced 3 days in a row",
		Qualifies:   func(c Context) bool { return c.StreakCount >= 3 },
	},
	TypeStreak7: {
		Type:        TypeStreak7,
		Title:       "Full Week",
		Description: "Practiced 7 days in a row",
		Qualifies:   func(c Context) bool { return c.StreakCount >= 7 },
	},
	TypeStreak30: {
		Type:        TypeStreak30,
		Title:       "Iron Embouchure",
		Description: "Practiced 30 days in a row",
		Qualifies:   func(c Context) bool { return c.StreakCount >= 30 },
	},
	TypeMarathon: {
		Type:        TypeMarathon,
		Title:       "Marathon",
		Description: "Practiced for an hour or more in one sitting",
		Qualifies:   func(c Context) bool { return c.DurationMinutes >= 60 },
	},
	TypePerfectFocus: {
		Type:        TypePerfectFocus,
		Title:       "Locked In",
		Description: "Rated a session focus 5 out of 5",
		Qualifies:   func(c Context) bool { return c.FocusRating != nil && *c.FocusRating == 5 },
	},
	TypeEarlyBird: {
		Type:        TypeEarlyBird,
		Title:       "Early Bird",
		Description: "Started practicing before 8 in the morning",
		Qualifies:   func(c Context) bool { return c.startHour() < 8 },
	},
	TypeNightOwl: {
		Type:        TypeNightOwl,
		Title:       "Night Owl",
		Description: "Started practicing at 10 in the evening or later",
		Qualifies:   func(c Context) bool { return c.startHour() >= 22 },
	},
}

// DefinitionFor returns the definition of a badge type.
func DefinitionFor(t Type) (Definition, bool) {
	d, ok := definitions[t]
	return d, ok
}

// AllDefinitions returns every badge definition in evaluation order.
func AllDefinitions() []Definition {
	out := make([]Definition, 0, len(order))
	for _, t := range order {
		out = append(out, definitions[t])
	}
	return out
}

// Evaluate returns the badge types the session newly earns, skipping those
// already held. A session can earn several badges at once; re-evaluating
// the same context grants nothing further.
func Evaluate(ctx Context, held map[Type]bool) []Type {
	var earned []Type
	for _, t := range order {
		if held[t] {
			continue
		}
		if definitions[t].Qualifies(ctx) {
			earned = append(earned, t)
		}
	}
	return earned
}
