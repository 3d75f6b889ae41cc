package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/practicebeats/practice-hub/internal/domain/note"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST NOTES QUERY
// A student's teacher feedback, newest first, with the unread count for the
// inbox badge.
// ══════════════════════════════════════════════════════════════════════════════

// ListNotesQuery contains the request parameters.
type ListNotesQuery struct {
	StudentID string

	// UnreadOnly restricts the list to notes not yet opened.
	UnreadOnly bool
}

// Validate validates the query parameters.
func (q ListNotesQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	return nil
}

// NotesList is the query result.
type NotesList struct {
	Notes  []*note.Note `json:"notes"`
	Unread int          `json:"unread"`
}

// ListNotesHandler handles the ListNotesQuery.
type ListNotesHandler struct {
	noteRepo note.Repository
}

// NewListNotesHandler creates a new ListNotesHandler.
func NewListNotesHandler(noteRepo note.Repository) *ListNotesHandler {
	return &ListNotesHandler{noteRepo: noteRepo}
}

// Handle lists the student's notes.
func (h *ListNotesHandler) Handle(ctx context.Context, q ListNotesQuery) (*NotesList, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("list_notes: %w", err)
	}

	notes, err := h.noteRepo.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list_notes: %w", err)
	}

	unread, err := h.noteRepo.CountUnread(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list_notes: %w", err)
	}

	if q.UnreadOnly {
		filtered := notes[:0]
		for _, n := range notes {
			if !n.IsRead() {
				filtered = append(filtered, n)
			}
		}
		notes = filtered
	}

	return &NotesList{Notes: notes, Unread: unread}, nil
}
