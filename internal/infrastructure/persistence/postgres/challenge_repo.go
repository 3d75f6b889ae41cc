package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
type ChallengeRepository struct {
	conn *Connection
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

const challengeColumns = `
	id, ensemble_id, title, description, goal_type, target_minutes,
	bonus_points, start_date, end_date, status, created_by, created_at
`

// Create saves a new challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	query := `
		INSERT INTO group_challenges (
			id, ensemble_id, title, description, goal_type, target_minutes,
			bonus_points, start_date, end_date, status, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID,
		c.EnsembleID,
		c.Title,
		c.Description,
		string(c.GoalType),
		c.TargetMinutes,
		c.BonusPoints,
		c.StartDate,
		c.EndDate,
		string(c.Status),
		c.CreatedBy,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return nil
}

// GetByID returns a challenge by ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM group_challenges WHERE id = $1`
	return r.scanChallenge(r.conn.QueryRow(ctx, query, id))
}

// Update persists the challenge status.
func (r *ChallengeRepository) Update(ctx context.Context, c *challenge.Challenge) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE group_challenges SET status = $2 WHERE id = $1`,
		c.ID, string(c.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to update challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrChallengeNotFound
	}

	return nil
}

// ListByEnsemble returns an ensemble's challenges, newest first.
func (r *ChallengeRepository) ListByEnsemble(ctx context.Context, ensembleID string) ([]*challenge.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM group_challenges
		WHERE ensemble_id = $1
		ORDER BY created_at DESC
	`
	return r.queryChallenges(ctx, query, ensembleID)
}

// ListActivePastDeadline returns active challenges whose end date is before
// the given day. Used by the expiry job.
func (r *ChallengeRepository) ListActivePastDeadline(ctx context.Context, day time.Time) ([]*challenge.Challenge, error) {
	query := `
		SELECT ` + challengeColumns + `
		FROM group_challenges
		WHERE status = 'active' AND end_date < $1
		ORDER BY end_date
	`
	return r.queryChallenges(ctx, query, day)
}

// RecordCompletion saves a member's completion.
func (r *ChallengeRepository) RecordCompletion(ctx context.Context, comp *challenge.Completion) error {
	query := `
		INSERT INTO challenge_completions (id, challenge_id, user_id, completed_at, points_awarded)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		comp.ID, comp.ChallengeID, comp.UserID, comp.CompletedAt, comp.PointsAwarded,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyCompleted
		}
		return fmt.Errorf("failed to record completion: %w", err)
	}

	return nil
}

// ListCompletions returns every completion of a challenge.
func (r *ChallengeRepository) ListCompletions(ctx context.Context, challengeID string) ([]*challenge.Completion, error) {
	query := `
		SELECT id, challenge_id, user_id, completed_at, points_awarded
		FROM challenge_completions
		WHERE challenge_id = $1
		ORDER BY completed_at
	`

	rows, err := r.conn.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []*challenge.Completion
	for rows.Next() {
		var comp challenge.Completion
		err := rows.Scan(&comp.ID, &comp.ChallengeID, &comp.UserID, &comp.CompletedAt, &comp.PointsAwarded)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, &comp)
	}

	return completions, rows.Err()
}

// HasCompleted reports whether a member already finished a challenge.
func (r *ChallengeRepository) HasCompleted(ctx context.Context, challengeID, userID string) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM challenge_completions WHERE challenge_id = $1 AND user_id = $2)`,
		challengeID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}

	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *ChallengeRepository) queryChallenges(ctx context.Context, query string, args ...interface{}) ([]*challenge.Challenge, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.Challenge
	for rows.Next() {
		c, err := r.scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}

	return challenges, rows.Err()
}

func (r *ChallengeRepository) scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	var (
		c        challenge.Challenge
		goalType string
		status   string
	)

	err := row.Scan(
		&c.ID,
		&c.EnsembleID,
		&c.Title,
		&c.Description,
		&goalType,
		&c.TargetMinutes,
		&c.BonusPoints,
		&c.StartDate,
		&c.EndDate,
		&status,
		&c.CreatedBy,
		&c.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}

	c.GoalType = challenge.GoalType(goalType)
	c.Status = challenge.Status(status)

	return &c, nil
}
