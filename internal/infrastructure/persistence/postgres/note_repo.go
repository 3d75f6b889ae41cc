package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/practicebeats/practice-hub/internal/domain/note"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// NoteRepository implements note.Repository for PostgreSQL.
type NoteRepository struct {
	conn *Connection
}

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(conn *Connection) *NoteRepository {
	return &NoteRepository{conn: conn}
}

// Create saves a new note.
func (r *NoteRepository) Create(ctx context.Context, n *note.Note) error {
	query := `
		INSERT INTO teacher_notes (id, teacher_id, student_id, task_id, content, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		n.ID, n.TeacherID, n.StudentID, nullIfEmpty(n.TaskID), n.Content, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// GetByID returns a note by ID.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*note.Note, error) {
	query := `
		SELECT id, teacher_id, student_id, task_id, content, read_at, created_at
		FROM teacher_notes
		WHERE id = $1
	`

	n, err := r.scanNote(r.conn.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// MarkRead stamps an unread note. Already-read notes keep their timestamp.
func (r *NoteRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE teacher_notes
		SET read_at = $2
		WHERE id = $1 AND read_at IS NULL
	`

	_, err := r.conn.Exec(ctx, query, id, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark note read: %w", err)
	}
	return nil
}

// ListByStudent returns a student's notes, newest first.
func (r *NoteRepository) ListByStudent(ctx context.Context, studentID string) ([]*note.Note, error) {
	query := `
		SELECT id, teacher_id, student_id, task_id, content, read_at, created_at
		FROM teacher_notes
		WHERE student_id = $1
		ORDER BY created_at DESC
	`
	return r.queryNotes(ctx, query, studentID)
}

// ListByTask returns the notes scoped to one task.
func (r *NoteRepository) ListByTask(ctx context.Context, taskID string) ([]*note.Note, error) {
	query := `
		SELECT id, teacher_id, student_id, task_id, content, read_at, created_at
		FROM teacher_notes
		WHERE task_id = $1
		ORDER BY created_at DESC
	`
	return r.queryNotes(ctx, query, taskID)
}

// CountUnread returns the number of unread notes for a student.
func (r *NoteRepository) CountUnread(ctx context.Context, studentID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM teacher_notes
		WHERE student_id = $1 AND read_at IS NULL
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, studentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notes: %w", err)
	}
	return count, nil
}

func (r *NoteRepository) queryNotes(ctx context.Context, query string, args ...interface{}) ([]*note.Note, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*note.Note
	for rows.Next() {
		n, err := r.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

func (r *NoteRepository) scanNote(row pgx.Row) (*note.Note, error) {
	var n note.Note
	var taskID *string
	err := row.Scan(&n.ID, &n.TeacherID, &n.StudentID, &taskID, &n.Content, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if taskID != nil {
		n.TaskID = *taskID
	}
	return &n, nil
}
