// Package session contains the practice session domain model.
// A session is an immutable record of one sitting at the instrument, with
// optional self-assessment ratings and links to the tasks worked on.
package session

import (
	"errors"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK LINK
// ══════════════════════════════════════════════════════════════════════════════

// TaskLink attributes a portion of a session to one practice task.
type TaskLink struct {
	// TaskID references the practice task.
	TaskID string

	// MinutesSpent on this task during the session. Positive; link sums may
	// exceed the session duration when tasks overlap, that is allowed.
	MinutesSpent int
}

// Validate checks the link fields.
func (l TaskLink) Validate() error {
	if l.TaskID == "" {
		return shared.ErrTaskNotFound
	}
	if l.MinutesSpent <= 0 {
		return shared.ErrInvalidMinutesSpent
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PRACTICE SESSION
// ══════════════════════════════════════════════════════════════════════════════

// PracticeSession is one logged practice sitting.
type PracticeSession struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// UserID is the owner of the session.
	UserID string

	// StartTime is when the sitting began. Badge time-of-day rules and the
	// streak day both derive from this instant.
	StartTime time.Time

	// DurationMinutes is the length of the sitting, always positive.
	DurationMinutes int

	// FocusRating is the 1-5 self-assessment of concentration, nil when the
	// user skipped it. Focus is the only rating that affects points.
	FocusRating *shared.Rating

	// ProgressRating is the 1-5 self-assessment of progress, optional.
	ProgressRating *shared.Rating

	// EnergyRating is the 1-5 self-assessment of energy, optional.
	EnergyRating *shared.Rating

	// Notes is free-form text about the sitting.
	Notes string

	// PointsEarned is the XP granted for this session, frozen at log time
	// and only recomputed when the focus rating changes.
	PointsEarned int

	// TaskLinks attributes time to tasks. May be empty.
	TaskLinks []TaskLink

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// NewSessionParams contains parameters for logging a new session.
type NewSessionParams struct {
	ID              string
	UserID          string
	StartTime       time.Time
	DurationMinutes int
	FocusRating     *int
	ProgressRating  *int
	EnergyRating    *int
	Notes           string
	TaskLinks       []TaskLink
}

// NewSession creates a practice session with validation. PointsEarned is
// zero until the caller applies the points rule with the user's updated
// streak.
func NewSession(params NewSessionParams) (*PracticeSession, error) {
	if params.ID == "" {
		return nil, errors.New("session id is required")
	}
	if params.UserID == "" {
		return nil, shared.ErrUserNotFound
	}
	if params.DurationMinutes <= 0 {
		return nil, shared.ErrInvalidDuration
	}
	if params.StartTime.IsZero() {
		return nil, shared.NewDomainError("session", "Validate", shared.ErrEmptyValue,
			"start time is required")
	}

	focus, err := shared.RatingPtr(params.FocusRating)
	if err != nil {
		return nil, shared.ErrInvalidRating
	}
	progress, err := shared.RatingPtr(params.ProgressRating)
	if err != nil {
		return nil, shared.ErrInvalidRating
	}
	energy, err := shared.RatingPtr(params.EnergyRating)
	if err != nil {
		return nil, shared.ErrInvalidRating
	}

	for _, link := range params.TaskLinks {
		if err := link.Validate(); err != nil {
			return nil, err
		}
	}

	return &PracticeSession{
		ID:              params.ID,
		UserID:          params.UserID,
		StartTime:       params.StartTime,
		DurationMinutes: params.DurationMinutes,
		FocusRating:     focus,
		ProgressRating:  progress,
		EnergyRating:    energy,
		Notes:           params.Notes,
		TaskLinks:       params.TaskLinks,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateRatings replaces the session's ratings and notes. Nil keeps a field,
// so a rating can be added after the fact but never cleared. Returns whether
// the focus rating changed, which is what decides a point recompute.
func (s *PracticeSession) UpdateRatings(focus, progress, energy *int, notes *string) (focusChanged bool, err error) {
	if focus != nil {
		r, rerr := shared.NewRating(*focus)
		if rerr != nil {
			return false, shared.ErrInvalidRating
		}
		if s.FocusRating == nil || *s.FocusRating != r {
			focusChanged = true
		}
		s.FocusRating = &r
	}
	if progress != nil {
		r, rerr := shared.NewRating(*progress)
		if rerr != nil {
			return false, shared.ErrInvalidRating
		}
		s.ProgressRating = &r
	}
	if energy != nil {
		r, rerr := shared.NewRating(*energy)
		if rerr != nil {
			return false, shared.ErrInvalidRating
		}
		s.EnergyRating = &r
	}
	if notes != nil {
		s.Notes = *notes
	}
	return focusChanged, nil
}

// FocusInt returns the focus rating as an int, 0 when unset.
func (s *PracticeSession) FocusInt() int {
	if s.FocusRating == nil {
		return 0
	}
	return s.FocusRating.Int()
}
