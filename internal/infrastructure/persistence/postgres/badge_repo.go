package postgres

import (
	"context"
	"fmt"

	"github.com/practicebeats/practice-hub/internal/domain/badge"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

// Grant saves a badge. The (user, type) unique constraint makes repeated
// grants a no-op rather than an error.
func (r *BadgeRepository) Grant(ctx context.Context, b *badge.Badge) error {
	query := `
		INSERT INTO badges (id, user_id, badge_type, earned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, badge_type) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query, b.ID, b.UserID, string(b.Type), b.EarnedAt)
	if err != nil {
		return fmt.Errorf("failed to grant badge: %w", err)
	}

	return nil
}

// ListByUser returns the user's badges, earliest earned first.
func (r *BadgeRepository) ListByUser(ctx context.Context, userID string) ([]*badge.Badge, error) {
	query := `
		SELECT id, user_id, badge_type, earned_at
		FROM badges
		WHERE user_id = $1
		ORDER BY earned_at
	`

	rows, err := r.conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	var badges []*badge.Badge
	for rows.Next() {
		var b badge.Badge
		var badgeType string
		if err := rows.Scan(&b.ID, &b.UserID, &badgeType, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		b.Type = badge.Type(badgeType)
		badges = append(badges, &b)
	}

	return badges, rows.Err()
}

// HeldTypes returns the set of badge types the user already holds.
func (r *BadgeRepository) HeldTypes(ctx context.Context, userID string) (map[badge.Type]bool, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT badge_type FROM badges WHERE user_id = $1`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query held badges: %w", err)
	}
	defer rows.Close()

	held := make(map[badge.Type]bool)
	for rows.Next() {
		var badgeType string
		if err := rows.Scan(&badgeType); err != nil {
			return nil, fmt.Errorf("failed to scan badge type: %w", err)
		}
		held[badge.Type(badgeType)] = true
	}

	return held, rows.Err()
}
