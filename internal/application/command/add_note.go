package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/note"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD NOTE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AddNoteCommand contains a teacher's written feedback for a student.
type AddNoteCommand struct {
	TeacherID string
	StudentID string
	TaskID    string
	Content   string
}

// AddNoteHandler handles the AddNoteCommand.
type AddNoteHandler struct {
	userRepo user.Repository
	noteRepo note.Repository
}

// NewAddNoteHandler creates a new AddNoteHandler.
func NewAddNoteHandler(userRepo user.Repository, noteRepo note.Repository) *AddNoteHandler {
	return &AddNoteHandler{userRepo: userRepo, noteRepo: noteRepo}
}

// Handle saves the note. Only the student's linked teacher can leave notes.
func (h *AddNoteHandler) Handle(ctx context.Context, cmd AddNoteCommand) (*note.Note, error) {
	student, err := h.userRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("add_note: %w", err)
	}
	if student.TeacherID != cmd.TeacherID {
		return nil, shared.NewDomainError("note", "Add", shared.ErrForbidden,
			"only the linked teacher can leave notes")
	}

	n, err := note.New(uuid.NewString(), cmd.TeacherID, cmd.StudentID, cmd.TaskID, cmd.Content)
	if err != nil {
		return nil, fmt.Errorf("add_note: %w", err)
	}

	if err := h.noteRepo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("add_note: %w", err)
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MARK NOTE READ COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// MarkNoteReadCommand records that a student opened a note.
type MarkNoteReadCommand struct {
	StudentID string
	NoteID    string
}

// MarkNoteReadHandler handles the MarkNoteReadCommand.
type MarkNoteReadHandler struct {
	noteRepo note.Repository
	now      func() time.Time
}

// NewMarkNoteReadHandler creates a new MarkNoteReadHandler.
func NewMarkNoteReadHandler(noteRepo note.Repository) *MarkNoteReadHandler {
	return &MarkNoteReadHandler{noteRepo: noteRepo, now: time.Now}
}

// Handle marks the note read. Only the recipient can mark it; repeated calls
// keep the first read timestamp.
func (h *MarkNoteReadHandler) Handle(ctx context.Context, cmd MarkNoteReadCommand) (*note.Note, error) {
	n, err := h.noteRepo.GetByID(ctx, cmd.NoteID)
	if err != nil {
		return nil, fmt.Errorf("mark_note_read: %w", err)
	}
	if n.StudentID != cmd.StudentID {
		return nil, shared.NewDomainError("note", "MarkRead", shared.ErrForbidden,
			"only the recipient can mark a note read")
	}

	if !n.IsRead() {
		at := h.now()
		if err := h.noteRepo.MarkRead(ctx, n.ID, at); err != nil {
			return nil, fmt.Errorf("mark_note_read: %w", err)
		}
		n.MarkRead(at)
	}
	return n, nil
}
