package user

import (
	"context"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// Repository defines the contract for user persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Create saves a new user.
	// Returns shared.ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by internal ID.
	// Returns shared.ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail returns a user by normalized email.
	// Returns shared.ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email shared.Email) (*User, error)

	// GetByTeacherCode returns the teacher account owning the given code.
	// Returns shared.ErrTeacherNotFound if no teacher has the code.
	GetByTeacherCode(ctx context.Context, code shared.JoinCode) (*User, error)

	// Update persists all mutable fields of the user.
	// Returns shared.ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, u *User) error

	// ListByEnsemble returns every member of an ensemble, in no particular
	// order. An empty result is not an error.
	ListByEnsemble(ctx context.Context, ensembleID string) ([]*User, error)

	// ListByTeacher returns all students linked to a teacher.
	ListByTeacher(ctx context.Context, teacherID string) ([]*User, error)

	// ListWithActiveStreaks returns users whose streak is at least minStreak,
	// used by the streak-at-risk job.
	ListWithActiveStreaks(ctx context.Context, minStreak int) ([]*User, error)
}
