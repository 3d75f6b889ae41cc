package badge

import "context"

// Repository defines the contract for badge persistence.
// Implementations live in the infrastructure layer.
type Repository interface {
	// Grant saves a badge. Granting a type the user already holds is a
	// no-op, not an error; the uniqueness is on (user, type).
	Grant(ctx context.Context, b *Badge) error

	// ListByUser returns the user's badges, earliest earned first.
	ListByUser(ctx context.Context, userID string) ([]*Badge, error)

	// HeldTypes returns the set of badge types the user already holds.
	HeldTypes(ctx context.Context, userID string) (map[Type]bool, error)
}
