package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/practicebeats/practice-hub/internal/domain/note"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

func seedLinkedPair(t *testing.T, users *fakeUserRepo) (teacher, student *user.User) {
	t.Helper()
	teacher, err := user.NewUser(user.NewUserParams{
		ID:    "teach",
		Name:  "Prof. Varga",
		Email: shared.Email("varga@example.com"),
		Role:  user.RoleTeacher,
	})
	require.NoError(t, err)
	student, err = user.NewUser(user.NewUserParams{
		ID:    "stud",
		Name:  "Dana Reyes",
		Email: shared.Email("dana@example.com"),
	})
	require.NoError(t, err)
	student.TeacherID = teacher.ID
	require.NoError(t, users.Create(context.Background(), teacher))
	require.NoError(t, users.Create(context.Background(), student))
	return teacher, student
}

func TestAddNote(t *testing.T) {
	users := newFakeUserRepo()
	notes := newFakeNoteRepo()
	seedLinkedPair(t, users)
	h := NewAddNoteHandler(users, notes)

	t.Run("linked teacher leaves a note", func(t *testing.T) {
		n, err := h.Handle(context.Background(), AddNoteCommand{
			TeacherID: "teach",
			StudentID: "stud",
			Content:   "lighter articulation in the second strain",
		})
		require.NoError(t, err)
		assert.False(t, n.IsRead())
		assert.Len(t, notes.notes, 1)
	})

	t.Run("unlinked teacher is refused", func(t *testing.T) {
		_, err := h.Handle(context.Background(), AddNoteCommand{
			TeacherID: "someone-else",
			StudentID: "stud",
			Content:   "hello",
		})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		_, err := h.Handle(context.Background(), AddNoteCommand{
			TeacherID: "teach",
			StudentID: "stud",
			Content:   "   ",
		})
		assert.Error(t, err)
	})
}

func TestMarkNoteRead(t *testing.T) {
	notes := newFakeNoteRepo()
	n, err := note.New("n1", "teach", "stud", "", "keep the wrist loose")
	require.NoError(t, err)
	require.NoError(t, notes.Create(context.Background(), n))

	h := NewMarkNoteReadHandler(notes)
	first := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return first }

	t.Run("recipient marks the note", func(t *testing.T) {
		got, err := h.Handle(context.Background(), MarkNoteReadCommand{StudentID: "stud", NoteID: "n1"})
		require.NoError(t, err)
		require.NotNil(t, got.ReadAt)
		assert.True(t, got.ReadAt.Equal(first))
	})

	t.Run("second call keeps the first timestamp", func(t *testing.T) {
		h.now = func() time.Time { return first.Add(2 * time.Hour) }
		got, err := h.Handle(context.Background(), MarkNoteReadCommand{StudentID: "stud", NoteID: "n1"})
		require.NoError(t, err)
		require.NotNil(t, got.ReadAt)
		assert.True(t, got.ReadAt.Equal(first))
	})

	t.Run("only the recipient may mark it", func(t *testing.T) {
		_, err := h.Handle(context.Background(), MarkNoteReadCommand{StudentID: "intruder", NoteID: "n1"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("unknown note", func(t *testing.T) {
		_, err := h.Handle(context.Background(), MarkNoteReadCommand{StudentID: "stud", NoteID: "nope"})
		assert.ErrorIs(t, err, shared.ErrNoteNotFound)
	})
}
