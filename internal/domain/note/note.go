// Package note contains teacher feedback notes left on a student's
// practice.
package note

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// Note is one piece of written feedback from a teacher to a student,
// optionally attached to a specific task.
type Note struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// TeacherID is the author.
	TeacherID string

	// StudentID is the recipient.
	StudentID string

	// TaskID optionally scopes the note to one practice task.
	TaskID string

	// Content is the note text.
	Content string

	// ReadAt is when the student opened the note; nil while unread.
	ReadAt *time.Time

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// IsRead reports whether the student has opened the note.
func (n *Note) IsRead() bool {
	return n.ReadAt != nil
}

// MarkRead records the first time the student opens the note. Later calls
// keep the original timestamp.
func (n *Note) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		t := at.UTC()
		n.ReadAt = &t
	}
}

// New creates a note with validation.
func New(id, teacherID, studentID, taskID, content string) (*Note, error) {
	if id == "" {
		return nil, errors.New("note id is required")
	}
	if teacherID == "" || studentID == "" {
		return nil, shared.ErrUserNotFound
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.NewDomainError("note", "Validate", shared.ErrEmptyValue,
			"note content cannot be empty")
	}

	return &Note{
		ID:        id,
		TeacherID: teacherID,
		StudentID: studentID,
		TaskID:    taskID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Repository defines the contract for note persistence.
type Repository interface {
	// Create saves a new note.
	Create(ctx context.Context, n *Note) error

	// GetByID returns a note by ID.
	// Returns shared.ErrNoteNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Note, error)

	// MarkRead stamps an unread note with the given time. A no-op for
	// already-read notes.
	MarkRead(ctx context.Context, id string, at time.Time) error

	// ListByStudent returns a student's notes, newest first.
	ListByStudent(ctx context.Context, studentID string) ([]*Note, error)

	// ListByTask returns notes attached to one task, newest first.
	ListByTask(ctx context.Context, taskID string) ([]*Note, error)

	// CountUnread returns the number of unread notes for a student.
	CountUnread(ctx context.Context, studentID string) (int, error)
}
