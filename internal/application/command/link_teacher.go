package command

import (
	"context"
	"fmt"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LINK TEACHER COMMAND
// A student types in their teacher's 6-digit code to connect the accounts.
// Sharing the practice log stays off until the student turns it on.
// ══════════════════════════════════════════════════════════════════════════════

// LinkTeacherCommand links a student to a teacher by code.
type LinkTeacherCommand struct {
	StudentID   string
	TeacherCode string
}

// LinkTeacherHandler handles the LinkTeacherCommand.
type LinkTeacherHandler struct {
	userRepo user.Repository
}

// NewLinkTeacherHandler creates a new LinkTeacherHandler.
func NewLinkTeacherHandler(userRepo user.Repository) *LinkTeacherHandler {
	return &LinkTeacherHandler{userRepo: userRepo}
}

// Handle resolves the code and links the accounts.
func (h *LinkTeacherHandler) Handle(ctx context.Context, cmd LinkTeacherCommand) (*user.User, error) {
	code := shared.JoinCode(cmd.TeacherCode)
	if !code.IsValid(shared.TeacherCodeLength) {
		return nil, shared.ErrTeacherNotFound
	}

	student, err := h.userRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("link_teacher: %w", err)
	}

	teacher, err := h.userRepo.GetByTeacherCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("link_teacher: %w", err)
	}
	if !teacher.IsTeacher() {
		return nil, shared.ErrNotATeacher
	}

	if err := student.LinkToTeacher(teacher.ID); err != nil {
		return nil, fmt.Errorf("link_teacher: %w", err)
	}

	if err := h.userRepo.Update(ctx, student); err != nil {
		return nil, fmt.Errorf("link_teacher: %w", err)
	}
	return student, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET PRACTICE SHARING COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SetPracticeSharingCommand toggles whether the linked teacher can see the
// student's practice log.
type SetPracticeSharingCommand struct {
	StudentID string
	Share     bool
}

// SetPracticeSharingHandler handles the SetPracticeSharingCommand.
type SetPracticeSharingHandler struct {
	userRepo user.Repository
}

// NewSetPracticeSharingHandler creates a new SetPracticeSharingHandler.
func NewSetPracticeSharingHandler(userRepo user.Repository) *SetPracticeSharingHandler {
	return &SetPracticeSharingHandler{userRepo: userRepo}
}

// Handle flips the sharing flag.
func (h *SetPracticeSharingHandler) Handle(ctx context.Context, cmd SetPracticeSharingCommand) error {
	student, err := h.userRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return fmt.Errorf("set_sharing: %w", err)
	}

	student.SharePracticeWithTeacher = cmd.Share
	if err := h.userRepo.Update(ctx, student); err != nil {
		return fmt.Errorf("set_sharing: %w", err)
	}
	return nil
}
