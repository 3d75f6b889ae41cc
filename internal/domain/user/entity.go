// Package user contains the musician domain model for PracticeBeats Hub.
// This is core business logic - there are no external dependencies here.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Role defines the account type of a user.
type Role string

const (
	// RoleStudent - a student linked to a teacher.
	RoleStudent Role = "student"
	// RoleTeacher - a teacher with students.
	RoleTeacher Role = "teacher"
	// RolePersonal - a solo user, no teacher connection.
	RolePersonal Role = "personal"
)

// IsValid checks that the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RolePersonal:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE STATE
// ══════════════════════════════════════════════════════════════════════════════

// PracticeState holds the gamification counters of a user.
// It only changes through the transition functions in streak.go applied by
// the application layer in one controlled write. The level invariant
// level == totalPoints/100 + 1 holds after every mutation.
type PracticeState struct {
	// StreakCount is the number of consecutive practice days.
	StreakCount int

	// TotalPoints is the accumulated XP from practice sessions.
	TotalPoints int

	// Level is derived from TotalPoints (100 XP per level).
	Level int

	// LastPracticeDate is the calendar date of the most recent practice,
	// nil before the first ever session.
	LastPracticeDate *time.Time
}

// NewPracticeState returns the starting state for a fresh account.
func NewPracticeState() PracticeState {
	return PracticeState{
		StreakCount: 0,
		TotalPoints: 0,
		Level:       1,
	}
}

// AddPoints applies a point delta (possibly negative), floors the total at
// zero, and re-resolves the level. Returns the old and new level so callers
// can emit a level-up event.
func (s *PracticeState) AddPoints(delta int) (oldLevel, newLevel int) {
	oldLevel = s.Level
	s.TotalPoints += delta
	if s.TotalPoints < 0 {
		s.TotalPoints = 0
	}
	s.Level = LevelForPoints(s.TotalPoints)
	return oldLevel, s.Level
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User is a musician tracking their practice.
type User struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// Name is the display name.
	Name string

	// Email is the unique login email.
	Email shared.Email

	// PasswordHash is the bcrypt hash of the password; empty for accounts
	// created without credentials.
	PasswordHash string

	// Instrument played, free text ("trumpet", "piano").
	Instrument string

	// Section for section-based challenges ("brass", "woodwind", "strings", "rhythm").
	Section string

	// Role - student, teacher, or personal.
	Role Role

	// TeacherCode is the unique 6-digit code of a teacher account, empty otherwise.
	TeacherCode shared.JoinCode

	// TeacherID links a student to their teacher, empty when unlinked.
	TeacherID string

	// SharePracticeWithTeacher is the student's opt-in to expose their
	// practice log to the linked teacher.
	SharePracticeWithTeacher bool

	// EnsembleID is the ensemble the user belongs to, empty for solo users.
	EnsembleID string

	// WeeklyGoalMinutes is the personal weekly practice target.
	WeeklyGoalMinutes int

	// Practice holds the gamification counters.
	Practice PracticeState

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// DefaultWeeklyGoalMinutes is 5 hours per week.
const DefaultWeeklyGoalMinutes = 300

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewUserParams contains parameters for creating a new user.
type NewUserParams struct {
	ID                string
	Name              string
	Email             shared.Email
	PasswordHash      string
	Instrument        string
	Section           string
	Role              Role
	EnsembleID        string
	WeeklyGoalMinutes int
}

// NewUser creates a new user with validation of all fields.
func NewUser(params NewUserParams) (*User, error) {
	if params.ID == "" {
		return nil, errors.New("user id is required")
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 255 {
		return nil, shared.NewDomainError("user", "Validate", shared.ErrInvalidInput,
			"name must be 1-255 chars")
	}

	if !params.Email.IsValid() {
		return nil, shared.ErrInvalidEmail
	}

	role := params.Role
	if role == "" {
		role = RolePersonal
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("user", "Validate", shared.ErrInvalidInput,
			fmt.Sprintf("invalid role %q", params.Role))
	}

	goal := params.WeeklyGoalMinutes
	if goal <= 0 {
		goal = DefaultWeeklyGoalMinutes
	}

	now := time.Now().UTC()

	return &User{
		ID:                params.ID,
		Name:              name,
		Email:             params.Email.Normalize(),
		PasswordHash:      params.PasswordHash,
		Instrument:        strings.TrimSpace(params.Instrument),
		Section:           strings.TrimSpace(params.Section),
		Role:              role,
		EnsembleID:        params.EnsembleID,
		WeeklyGoalMinutes: goal,
		Practice:          NewPracticeState(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// IsTeacher reports whether the account is a teacher account.
func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

// LinkToTeacher links the user to a teacher and makes them a student.
func (u *User) LinkToTeacher(teacherID string) error {
	if teacherID == "" {
		return shared.ErrTeacherNotFound
	}
	u.TeacherID = teacherID
	u.Role = RoleStudent
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// JoinEnsemble puts the user into an ensemble.
func (u *User) JoinEnsemble(ensembleID string) {
	u.EnsembleID = ensembleID
	u.UpdatedAt = time.Now().UTC()
}

// ApplyPractice runs the streak transition for a practice on the given
// calendar day and writes the result onto the practice state. Returns the
// old and new streak so callers can emit events.
// Must run before point calculation: the updated streak feeds the multiplier.
func (u *User) ApplyPractice(today time.Time, loc *time.Location) (oldStreak, newStreak int) {
	oldStreak = u.Practice.StreakCount
	streak, last := NextStreak(today, u.Practice.LastPracticeDate, u.Practice.StreakCount, loc)
	u.Practice.StreakCount = streak
	u.Practice.LastPracticeDate = &last
	u.UpdatedAt = time.Now().UTC()
	return oldStreak, streak
}

// WeeklyProgressPercent returns how far along the weekly goal the given
// minutes are, capped at 100. A zero goal yields 0.
func (u *User) WeeklyProgressPercent(weeklyMinutes int) float64 {
	if u.WeeklyGoalMinutes <= 0 {
		return 0
	}
	progress := float64(weeklyMinutes) / float64(u.WeeklyGoalMinutes) * 100
	if progress > 100 {
		return 100
	}
	return progress
}

// String returns a string representation of the user for logging.
func (u *User) String() string {
	return fmt.Sprintf(
		"User{ID: %s, Email: %s, Points: %d, Level: %d, Streak: %d}",
		u.ID, u.Email, u.Practice.TotalPoints, u.Practice.Level, u.Practice.StreakCount,
	)
}

// Clone creates a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u
	if u.Practice.LastPracticeDate != nil {
		d := *u.Practice.LastPracticeDate
		clone.Practice.LastPracticeDate = &d
	}
	return &clone
}
