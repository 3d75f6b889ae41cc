package ensemble

import (
	"context"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// Repository defines the contract for ensemble persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Create saves a new ensemble.
	// Returns shared.ErrAlreadyExists if the join code collides.
	Create(ctx context.Context, e *Ensemble) error

	// GetByID returns an ensemble by ID.
	// Returns shared.ErrEnsembleNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Ensemble, error)

	// GetByJoinCode resolves a join code to its ensemble.
	// Returns shared.ErrInvalidJoinCode when no ensemble owns the code.
	GetByJoinCode(ctx context.Context, code shared.JoinCode) (*Ensemble, error)

	// CreateRehearsal saves a rehearsal.
	CreateRehearsal(ctx context.Context, r *Rehearsal) error

	// GetRehearsal returns a rehearsal by ID.
	// Returns shared.ErrRehearsalNotFound if it does not exist.
	GetRehearsal(ctx context.Context, id string) (*Rehearsal, error)

	// ListRehearsals returns an ensemble's rehearsals, soonest first.
	ListRehearsals(ctx context.Context, ensembleID string) ([]*Rehearsal, error)

	// UpdateRehearsal persists a rehearsal's mutable fields.
	// Returns shared.ErrRehearsalNotFound if it does not exist.
	UpdateRehearsal(ctx context.Context, r *Rehearsal) error

	// DeleteRehearsal removes a rehearsal. Tasks that pointed at it lose
	// the link but stay.
	// Returns shared.ErrRehearsalNotFound if it does not exist.
	DeleteRehearsal(ctx context.Context, id string) error
}
