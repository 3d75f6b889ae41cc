package challenge

import (
	"context"
	"time"
)

// Repository defines the contract for challenge persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Create saves a new challenge.
	Create(ctx context.Context, c *Challenge) error

	// GetByID returns a challenge by ID.
	// Returns shared.ErrChallengeNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Challenge, error)

	// Update persists the challenge status.
	Update(ctx context.Context, c *Challenge) error

	// ListByEnsemble returns an ensemble's challenges, newest first.
	ListByEnsemble(ctx context.Context, ensembleID string) ([]*Challenge, error)

	// ListActivePastDeadline returns active challenges whose end date is
	// before the given day, for the expiry job.
	ListActivePastDeadline(ctx context.Context, day time.Time) ([]*Challenge, error)

	// RecordCompletion saves a member's completion.
	// Returns shared.ErrAlreadyCompleted when the member already finished
	// this challenge.
	RecordCompletion(ctx context.Context, comp *Completion) error

	// ListCompletions returns every completion of a challenge.
	ListCompletions(ctx context.Context, challengeID string) ([]*Completion, error)

	// HasCompleted reports whether a member already finished a challenge.
	HasCompleted(ctx context.Context, challengeID, userID string) (bool, error)
}
