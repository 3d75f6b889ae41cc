package task

import "context"

// Repository defines the contract for practice task persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Create saves a new task.
	Create(ctx context.Context, t *Task) error

	// GetByID returns a task by ID.
	// Returns shared.ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id string) (*Task, error)

	// Update persists all mutable fields of the task.
	Update(ctx context.Context, t *Task) error

	// Delete removes a task. Session links referencing it are removed with
	// it; session records stay.
	Delete(ctx context.Context, id string) error

	// ListByUser returns the user's tasks, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]*Task, error)

	// ListByRehearsal returns tasks tied to a rehearsal.
	ListByRehearsal(ctx context.Context, rehearsalID string) ([]*Task, error)
}
