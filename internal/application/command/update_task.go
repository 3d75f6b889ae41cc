package command

import (
	"context"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE TASK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateTaskCommand edits a task's descriptive fields. Nil fields keep
// their current value; practice statistics cannot be edited.
type UpdateTaskCommand struct {
	TaskID           string
	UserID           string
	Title            *string
	Description      *string
	Category         *string
	Difficulty       *int
	EstimatedMinutes *int
	DueDate          *time.Time
}

// UpdateTaskHandler handles the UpdateTaskCommand.
type UpdateTaskHandler struct {
	taskRepo    task.Repository
	sessionRepo session.Repository
}

// NewUpdateTaskHandler creates a new UpdateTaskHandler.
func NewUpdateTaskHandler(taskRepo task.Repository, sessionRepo session.Repository) *UpdateTaskHandler {
	return &UpdateTaskHandler{taskRepo: taskRepo, sessionRepo: sessionRepo}
}

// Handle applies the edit and rescores readiness, since a changed
// estimate moves the score.
func (h *UpdateTaskHandler) Handle(ctx context.Context, cmd UpdateTaskCommand) (*task.Task, error) {
	t, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, fmt.Errorf("update_task: %w", err)
	}
	if t.UserID != cmd.UserID {
		return nil, shared.ErrTaskNotFound
	}

	var category *task.Category
	if cmd.Category != nil {
		c := task.Category(*cmd.Category)
		category = &c
	}

	if err := t.Edit(task.EditParams{
		Title:            cmd.Title,
		Description:      cmd.Description,
		Category:         category,
		Difficulty:       cmd.Difficulty,
		EstimatedMinutes: cmd.EstimatedMinutes,
		DueDate:          cmd.DueDate,
	}); err != nil {
		return nil, fmt.Errorf("update_task: %w", err)
	}

	ratings, err := h.sessionRepo.RatingsForTask(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update_task: failed to load task ratings: %w", err)
	}
	t.Rescore(toSessionRatings(ratings))

	if err := h.taskRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update_task: %w", err)
	}
	return t, nil
}
