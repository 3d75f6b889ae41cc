package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements session.Repository for PostgreSQL.
// Task links live in the session_tasks join table and are written together
// with the session row in one transaction.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

const sessionColumns = `
	id, user_id, start_time, duration_minutes,
	focus_rating, progress_rating, energy_rating,
	notes, points_earned, created_at
`

// Create saves a session and its task links.
func (r *SessionRepository) Create(ctx context.Context, s *session.PracticeSession) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			INSERT INTO practice_sessions (
				id, user_id, start_time, duration_minutes,
				focus_rating, progress_rating, energy_rating,
				notes, points_earned, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		_, err := tx.Exec(ctx, query,
			s.ID,
			s.UserID,
			s.StartTime,
			s.DurationMinutes,
			ratingValue(s.FocusRating),
			ratingValue(s.ProgressRating),
			ratingValue(s.EnergyRating),
			s.Notes,
			s.PointsEarned,
			s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}

		return insertLinks(ctx, tx, s.ID, s.TaskLinks)
	})
}

// GetByID returns a session with its task links.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*session.PracticeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM practice_sessions WHERE id = $1`

	s, err := r.scanSession(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	links, err := r.linksFor(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.TaskLinks = links[s.ID]

	return s, nil
}

// Update persists mutable session fields and rewrites the task links.
func (r *SessionRepository) Update(ctx context.Context, s *session.PracticeSession) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		query := `
			UPDATE practice_sessions SET
				focus_rating = $2,
				progress_rating = $3,
				energy_rating = $4,
				notes = $5,
				points_earned = $6
			WHERE id = $1
		`

		tag, err := tx.Exec(ctx, query,
			s.ID,
			ratingValue(s.FocusRating),
			ratingValue(s.ProgressRating),
			ratingValue(s.EnergyRating),
			s.Notes,
			s.PointsEarned,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrSessionNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM session_tasks WHERE session_id = $1`, s.ID); err != nil {
			return fmt.Errorf("failed to clear session task links: %w", err)
		}

		return insertLinks(ctx, tx, s.ID, s.TaskLinks)
	})
}

// Delete removes a session; the join table cascades.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM practice_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSessionNotFound
	}

	return nil
}

// ListByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*session.PracticeSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM practice_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
	`
	args := []interface{}{userID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	return r.querySessions(ctx, query, args...)
}

// ListByUserBetween returns sessions in [from, to), newest first.
func (r *SessionRepository) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*session.PracticeSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM practice_sessions
		WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time DESC
	`

	return r.querySessions(ctx, query, userID, from, to)
}

// SumBetween returns total minutes and points per user over [from, to).
// Users without sessions in the window are absent from the map.
func (r *SessionRepository) SumBetween(ctx context.Context, userIDs []string, from, to time.Time) (map[string]session.PeriodTotals, error) {
	if len(userIDs) == 0 {
		return map[string]session.PeriodTotals{}, nil
	}

	query := `
		SELECT user_id, COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(points_earned), 0)
		FROM practice_sessions
		WHERE user_id = ANY($1) AND start_time >= $2 AND start_time < $3
		GROUP BY user_id
	`

	rows, err := r.conn.Query(ctx, query, userIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum sessions: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]session.PeriodTotals)
	for rows.Next() {
		var userID string
		var totals session.PeriodTotals
		if err := rows.Scan(&userID, &totals.Minutes, &totals.Points); err != nil {
			return nil, fmt.Errorf("failed to scan session sums: %w", err)
		}
		sums[userID] = totals
	}

	return sums, rows.Err()
}

// CountByUser returns the user's lifetime session count.
func (r *SessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM practice_sessions WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

// RatingsForTask returns the ratings of every session linked to a task.
func (r *SessionRepository) RatingsForTask(ctx context.Context, taskID string) ([]session.TaskSessionRatings, error) {
	query := `
		SELECT s.focus_rating, s.progress_rating, s.energy_rating
		FROM practice_sessions s
		JOIN session_tasks st ON st.session_id = s.id
		WHERE st.task_id = $1
	`

	rows, err := r.conn.Query(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task ratings: %w", err)
	}
	defer rows.Close()

	var ratings []session.TaskSessionRatings
	for rows.Next() {
		var tr session.TaskSessionRatings
		if err := rows.Scan(&tr.Focus, &tr.Progress, &tr.Energy); err != nil {
			return nil, fmt.Errorf("failed to scan task ratings: %w", err)
		}
		ratings = append(ratings, tr)
	}

	return ratings, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...interface{}) ([]*session.PracticeSession, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.PracticeSession
	var ids []string
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.linksFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		s.TaskLinks = links[s.ID]
	}

	return sessions, nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*session.PracticeSession, error) {
	var (
		s        session.PracticeSession
		focus    *int
		progress *int
		energy   *int
	)

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartTime,
		&s.DurationMinutes,
		&focus,
		&progress,
		&energy,
		&s.Notes,
		&s.PointsEarned,
		&s.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.FocusRating = toRating(focus)
	s.ProgressRating = toRating(progress)
	s.EnergyRating = toRating(energy)

	return &s, nil
}

func (r *SessionRepository) linksFor(ctx context.Context, sessionIDs []string) (map[string][]session.TaskLink, error) {
	links := make(map[string][]session.TaskLink)
	if len(sessionIDs) == 0 {
		return links, nil
	}

	query := `
		SELECT session_id, task_id, minutes_spent
		FROM session_tasks
		WHERE session_id = ANY($1)
	`

	rows, err := r.conn.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query session task links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID string
		var link session.TaskLink
		if err := rows.Scan(&sessionID, &link.TaskID, &link.MinutesSpent); err != nil {
			return nil, fmt.Errorf("failed to scan session task link: %w", err)
		}
		links[sessionID] = append(links[sessionID], link)
	}

	return links, rows.Err()
}

func insertLinks(ctx context.Context, tx pgx.Tx, sessionID string, links []session.TaskLink) error {
	for _, link := range links {
		_, err := tx.Exec(ctx,
			`INSERT INTO session_tasks (session_id, task_id, minutes_spent) VALUES ($1, $2, $3)`,
			sessionID, link.TaskID, link.MinutesSpent,
		)
		if err != nil {
			return fmt.Errorf("failed to link task %s: %w", link.TaskID, err)
		}
	}
	return nil
}

// ratingValue unwraps an optional rating into a nullable SQL value.
func ratingValue(r *shared.Rating) interface{} {
	if r == nil {
		return nil
	}
	return r.Int()
}

// toRating wraps a nullable column back into the domain's optional rating.
func toRating(v *int) *shared.Rating {
	if v == nil {
		return nil
	}
	rt := shared.Rating(*v)
	return &rt
}
