package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// TASK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TaskRepository implements task.Repository for PostgreSQL.
type TaskRepository struct {
	conn *Connection
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(conn *Connection) *TaskRepository {
	return &TaskRepository{conn: conn}
}

const taskColumns = `
	id, user_id, title, description, category, difficulty,
	estimated_minutes, total_time_practiced, practice_count,
	status, readiness_score, rehearsal_id, assigned_by, due_date,
	created_at, updated_at
`

// Create saves a new task.
func (r *TaskRepository) Create(ctx context.Context, t *task.Task) error {
	query := `
		INSERT INTO practice_tasks (
			id, user_id, title, description, category, difficulty,
			estimated_minutes, total_time_practiced, practice_count,
			status, readiness_score, rehearsal_id, assigned_by, due_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.conn.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		string(t.Category),
		t.Difficulty,
		t.EstimatedMinutes,
		t.TotalTimePracticed,
		t.PracticeCount,
		string(t.Status),
		t.ReadinessScore,
		nullIfEmpty(t.RehearsalID),
		nullIfEmpty(t.AssignedBy),
		t.DueDate,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID returns a task by ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM practice_tasks WHERE id = $1`
	return r.scanTask(r.conn.QueryRow(ctx, query, id))
}

// Update persists all mutable fields of the task.
func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	query := `
		UPDATE practice_tasks SET
			title = $2,
			description = $3,
			category = $4,
			difficulty = $5,
			estimated_minutes = $6,
			total_time_practiced = $7,
			practice_count = $8,
			status = $9,
			readiness_score = $10,
			rehearsal_id = $11,
			due_date = $12,
			updated_at = $13
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		string(t.Category),
		t.Difficulty,
		t.EstimatedMinutes,
		t.TotalTimePracticed,
		t.PracticeCount,
		string(t.Status),
		t.ReadinessScore,
		nullIfEmpty(t.RehearsalID),
		t.DueDate,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}

	return nil
}

// Delete removes a task. Session link rows cascade; session records stay.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM practice_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrTaskNotFound
	}

	return nil
}

// ListByUser returns the user's tasks, most recently updated first.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM practice_tasks WHERE user_id = $1 ORDER BY updated_at DESC`
	return r.queryTasks(ctx, query, userID)
}

// ListByRehearsal returns tasks tied to a rehearsal.
func (r *TaskRepository) ListByRehearsal(ctx context.Context, rehearsalID string) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM practice_tasks WHERE rehearsal_id = $1 ORDER BY updated_at DESC`
	return r.queryTasks(ctx, query, rehearsalID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*task.Task, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func (r *TaskRepository) scanTask(row pgx.Row) (*task.Task, error) {
	var (
		t           task.Task
		category    string
		status      string
		rehearsalID *string
		assignedBy  *string
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&category,
		&t.Difficulty,
		&t.EstimatedMinutes,
		&t.TotalTimePracticed,
		&t.PracticeCount,
		&status,
		&t.ReadinessScore,
		&rehearsalID,
		&assignedBy,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	t.Category = task.Category(category)
	t.Status = task.Status(status)
	if rehearsalID != nil {
		t.RehearsalID = *rehearsalID
	}
	if assignedBy != nil {
		t.AssignedBy = *assignedBy
	}

	return &t, nil
}
