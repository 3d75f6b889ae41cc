package query

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST TASKS QUERY
// Returns the user's tasks with readiness recomputed at read time, so the
// scores are fresh even if a write-side recompute was missed.
// ══════════════════════════════════════════════════════════════════════════════

// ListTasksQuery contains the task list request parameters.
type ListTasksQuery struct {
	// UserID is the task owner.
	UserID string

	// Status filters by lifecycle state; empty means all.
	Status string
}

// Validate validates the query parameters.
func (q *ListTasksQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	if q.Status != "" && !task.Status(q.Status).IsValid() {
		return shared.ErrInvalidStatus
	}
	return nil
}

// ListTasksHandler handles the ListTasksQuery.
type ListTasksHandler struct {
	taskRepo    task.Repository
	sessionRepo session.Repository
}

// NewListTasksHandler creates a new ListTasksHandler.
func NewListTasksHandler(taskRepo task.Repository, sessionRepo session.Repository) *ListTasksHandler {
	return &ListTasksHandler{taskRepo: taskRepo, sessionRepo: sessionRepo}
}

// Handle lists the tasks, unready-but-close first.
func (h *ListTasksHandler) Handle(ctx context.Context, q ListTasksQuery) ([]*task.Task, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("list_tasks: %w", err)
	}

	tasks, err := h.taskRepo.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list_tasks: %w", err)
	}

	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Status != "" && t.Status != task.Status(q.Status) {
			continue
		}

		ratings, err := h.sessionRepo.RatingsForTask(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("list_tasks: failed to load ratings for %s: %w", t.ID, err)
		}
		t.Rescore(toTaskRatings(ratings))
		out = append(out, t)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReadinessScore > out[j].ReadinessScore
	})
	return out, nil
}

func toTaskRatings(in []session.TaskSessionRatings) []task.SessionRatings {
	out := make([]task.SessionRatings, len(in))
	for i, r := range in {
		out[i] = task.SessionRatings{Focus: r.Focus, Progress: r.Progress, Energy: r.Energy}
	}
	return out
}
