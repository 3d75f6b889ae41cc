package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE TASK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateTaskCommand contains the data to create a practice task. When
// AssignedBy is set, a teacher is assigning the task to a linked student.
type CreateTaskCommand struct {
	UserID           string
	Title            string
	Description      string
	Category         string
	Difficulty       int
	EstimatedMinutes int
	RehearsalID      string
	AssignedBy       string
	DueDate          *time.Time
}

// Validate validates the command.
func (c CreateTaskCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("create_task: user_id is required")
	}
	if c.Title == "" {
		return errors.New("create_task: title is required")
	}
	return nil
}

// CreateTaskHandler handles the CreateTaskCommand.
type CreateTaskHandler struct {
	userRepo user.Repository
	taskRepo task.Repository
	eventBus shared.EventBus
}

// NewCreateTaskHandler creates a new CreateTaskHandler.
func NewCreateTaskHandler(userRepo user.Repository, taskRepo task.Repository, eventBus shared.EventBus) *CreateTaskHandler {
	return &CreateTaskHandler{userRepo: userRepo, taskRepo: taskRepo, eventBus: eventBus}
}

// Handle creates the task. Assignment requires the assigner to be the
// student's linked teacher.
func (h *CreateTaskHandler) Handle(ctx context.Context, cmd CreateTaskCommand) (*task.Task, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}

	if cmd.AssignedBy != "" && cmd.AssignedBy != cmd.UserID {
		if usr.TeacherID != cmd.AssignedBy {
			return nil, shared.NewDomainError("task", "Assign", shared.ErrForbidden,
				"only the linked teacher can assign tasks")
		}
	}

	t, err := task.NewTask(task.NewTaskParams{
		ID:               uuid.NewString(),
		UserID:           usr.ID,
		Title:            cmd.Title,
		Description:      cmd.Description,
		Category:         task.Category(cmd.Category),
		Difficulty:       cmd.Difficulty,
		EstimatedMinutes: cmd.EstimatedMinutes,
		RehearsalID:      cmd.RehearsalID,
		AssignedBy:       cmd.AssignedBy,
		DueDate:          cmd.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}

	if err := h.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create_task: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewBaseEvent(shared.EventTaskCreated, t.ID))
	}

	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MARK TASK READY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// MarkTaskReadyCommand flips a task to performance-ready.
type MarkTaskReadyCommand struct {
	TaskID string
	UserID string
}

// MarkTaskReadyHandler handles the MarkTaskReadyCommand.
type MarkTaskReadyHandler struct {
	taskRepo task.Repository
}

// NewMarkTaskReadyHandler creates a new MarkTaskReadyHandler.
func NewMarkTaskReadyHandler(taskRepo task.Repository) *MarkTaskReadyHandler {
	return &MarkTaskReadyHandler{taskRepo: taskRepo}
}

// Handle marks the task ready.
func (h *MarkTaskReadyHandler) Handle(ctx context.Context, cmd MarkTaskReadyCommand) (*task.Task, error) {
	t, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return nil, fmt.Errorf("mark_task_ready: %w", err)
	}
	if t.UserID != cmd.UserID {
		return nil, shared.ErrTaskNotFound
	}

	t.MarkReady()
	if err := h.taskRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("mark_task_ready: %w", err)
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE TASK COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// DeleteTaskCommand removes a task. Logged sessions keep their records;
// only the links to this task disappear.
type DeleteTaskCommand struct {
	TaskID string
	UserID string
}

// DeleteTaskHandler handles the DeleteTaskCommand.
type DeleteTaskHandler struct {
	taskRepo task.Repository
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(taskRepo task.Repository) *DeleteTaskHandler {
	return &DeleteTaskHandler{taskRepo: taskRepo}
}

// Handle deletes the task.
func (h *DeleteTaskHandler) Handle(ctx context.Context, cmd DeleteTaskCommand) error {
	t, err := h.taskRepo.GetByID(ctx, cmd.TaskID)
	if err != nil {
		return fmt.Errorf("delete_task: %w", err)
	}
	if t.UserID != cmd.UserID {
		return shared.ErrTaskNotFound
	}
	if err := h.taskRepo.Delete(ctx, cmd.TaskID); err != nil {
		return fmt.Errorf("delete_task: %w", err)
	}
	return nil
}
