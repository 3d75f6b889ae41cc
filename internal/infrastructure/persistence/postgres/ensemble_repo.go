package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENSEMBLE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnsembleRepository implements ensemble.Repository for PostgreSQL.
type EnsembleRepository struct {
	conn *Connection
}

// NewEnsembleRepository creates a new EnsembleRepository.
func NewEnsembleRepository(conn *Connection) *EnsembleRepository {
	return &EnsembleRepository{conn: conn}
}

// Create saves a new ensemble.
func (r *EnsembleRepository) Create(ctx context.Context, e *ensemble.Ensemble) error {
	query := `
		INSERT INTO ensembles (id, name, description, join_code, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		e.ID, e.Name, e.Description, e.JoinCode.String(), e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create ensemble: %w", err)
	}

	return nil
}

// GetByID returns an ensemble by ID.
func (r *EnsembleRepository) GetByID(ctx context.Context, id string) (*ensemble.Ensemble, error) {
	query := `
		SELECT id, name, description, join_code, created_by, created_at
		FROM ensembles WHERE id = $1
	`

	e, err := r.scanEnsemble(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnsembleNotFound
		}
		return nil, err
	}
	return e, nil
}

// GetByJoinCode resolves a join code to its ensemble.
func (r *EnsembleRepository) GetByJoinCode(ctx context.Context, code shared.JoinCode) (*ensemble.Ensemble, error) {
	query := `
		SELECT id, name, description, join_code, created_by, created_at
		FROM ensembles WHERE join_code = $1
	`

	e, err := r.scanEnsemble(r.conn.QueryRow(ctx, query, code.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInvalidJoinCode
		}
		return nil, err
	}
	return e, nil
}

// ListIDs returns every ensemble ID. The leaderboard rebuild job iterates
// these.
func (r *EnsembleRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT id FROM ensembles`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ensemble ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ensemble id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CreateRehearsal saves a rehearsal.
func (r *EnsembleRepository) CreateRehearsal(ctx context.Context, reh *ensemble.Rehearsal) error {
	query := `
		INSERT INTO rehearsals (id, ensemble_id, title, location, scheduled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		reh.ID, reh.EnsembleID, reh.Title, reh.Location, reh.ScheduledAt, reh.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rehearsal: %w", err)
	}

	return nil
}

// GetRehearsal returns a rehearsal by ID.
func (r *EnsembleRepository) GetRehearsal(ctx context.Context, id string) (*ensemble.Rehearsal, error) {
	query := `
		SELECT id, ensemble_id, title, location, scheduled_at, created_at
		FROM rehearsals WHERE id = $1
	`

	var reh ensemble.Rehearsal
	err := r.conn.QueryRow(ctx, query, id).Scan(
		&reh.ID, &reh.EnsembleID, &reh.Title, &reh.Location, &reh.ScheduledAt, &reh.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRehearsalNotFound
		}
		return nil, fmt.Errorf("failed to scan rehearsal: %w", err)
	}

	return &reh, nil
}

// ListRehearsals returns an ensemble's rehearsals, soonest first.
func (r *EnsembleRepository) ListRehearsals(ctx context.Context, ensembleID string) ([]*ensemble.Rehearsal, error) {
	query := `
		SELECT id, ensemble_id, title, location, scheduled_at, created_at
		FROM rehearsals
		WHERE ensemble_id = $1
		ORDER BY scheduled_at
	`

	rows, err := r.conn.Query(ctx, query, ensembleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rehearsals: %w", err)
	}
	defer rows.Close()

	var rehearsals []*ensemble.Rehearsal
	for rows.Next() {
		var reh ensemble.Rehearsal
		err := rows.Scan(&reh.ID, &reh.EnsembleID, &reh.Title, &reh.Location, &reh.ScheduledAt, &reh.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rehearsal: %w", err)
		}
		rehearsals = append(rehearsals, &reh)
	}

	return rehearsals, rows.Err()
}

// UpdateRehearsal persists a rehearsal's mutable fields.
func (r *EnsembleRepository) UpdateRehearsal(ctx context.Context, reh *ensemble.Rehearsal) error {
	query := `
		UPDATE rehearsals SET title = $2, location = $3, scheduled_at = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, reh.ID, reh.Title, reh.Location, reh.ScheduledAt)
	if err != nil {
		return fmt.Errorf("failed to update rehearsal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRehearsalNotFound
	}

	return nil
}

// DeleteRehearsal removes a rehearsal and unlinks the tasks that pointed
// at it; the tasks themselves stay.
func (r *EnsembleRepository) DeleteRehearsal(ctx context.Context, id string) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE practice_tasks SET rehearsal_id = NULL WHERE rehearsal_id = $1`, id,
		); err != nil {
			return fmt.Errorf("failed to unlink rehearsal tasks: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM rehearsals WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete rehearsal: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrRehearsalNotFound
		}

		return nil
	})
}

func (r *EnsembleRepository) scanEnsemble(row pgx.Row) (*ensemble.Ensemble, error) {
	var e ensemble.Ensemble
	var joinCode string

	err := row.Scan(&e.ID, &e.Name, &e.Description, &joinCode, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.JoinCode = shared.JoinCode(joinCode)
	return &e, nil
}
