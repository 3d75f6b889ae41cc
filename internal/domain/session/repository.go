package session

import (
	"context"
	"time"
)

// Repository defines the contract for practice session persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Create saves a new session together with its task links.
	Create(ctx context.Context, s *PracticeSession) error

	// GetByID returns a session with its task links loaded.
	// Returns shared.ErrSessionNotFound if the session does not exist.
	GetByID(ctx context.Context, id string) (*PracticeSession, error)

	// Update persists mutable session fields (ratings, notes, points).
	// Task links are immutable after creation.
	Update(ctx context.Context, s *PracticeSession) error

	// Delete removes a session and its task links.
	// Returns shared.ErrSessionNotFound if the session does not exist.
	Delete(ctx context.Context, id string) error

	// ListByUser returns the user's sessions, newest first, up to limit.
	// limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*PracticeSession, error)

	// ListByUserBetween returns sessions whose start time falls in
	// [from, to), newest first.
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*PracticeSession, error)

	// SumBetween returns practiced minutes and points earned per user for
	// the given user set with start times in [from, to). Users without
	// sessions are absent from the map.
	SumBetween(ctx context.Context, userIDs []string, from, to time.Time) (map[string]PeriodTotals, error)

	// CountByUser returns how many sessions a user has logged.
	CountByUser(ctx context.Context, userID string) (int, error)

	// RatingsForTask returns the ratings of every session linked to a task,
	// used by the readiness formula.
	RatingsForTask(ctx context.Context, taskID string) ([]TaskSessionRatings, error)
}

// PeriodTotals aggregates one user's sessions over a time window.
type PeriodTotals struct {
	Minutes int
	Points  int
}

// TaskSessionRatings carries the self-assessment ratings of one session
// linked to a task.
type TaskSessionRatings struct {
	Focus    *int
	Progress *int
	Energy   *int
}
