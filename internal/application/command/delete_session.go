package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE SESSION COMMAND
// Removes a mislogged session and reverses its points and task time, both
// floored at zero. Streaks and badges are deliberately left alone: the
// calendar day was still practiced, and achievements are not clawed back.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteSessionCommand identifies the session to delete.
type DeleteSessionCommand struct {
	SessionID string
	UserID    string
}

// Validate validates the command.
func (c DeleteSessionCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("delete_session: session_id is required")
	}
	if c.UserID == "" {
		return errors.New("delete_session: user_id is required")
	}
	return nil
}

// DeleteSessionResult reports what the delete reversed.
type DeleteSessionResult struct {
	// PointsReversed is how many points were taken back.
	PointsReversed int

	// TotalPoints and Level of the user after the delete.
	TotalPoints int
	Level       int
}

// DeleteSessionHandler handles the DeleteSessionCommand.
type DeleteSessionHandler struct {
	userRepo    user.Repository
	sessionRepo session.Repository
	taskRepo    task.Repository
	eventBus    shared.EventBus
}

// NewDeleteSessionHandler creates a new DeleteSessionHandler.
func NewDeleteSessionHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	taskRepo task.Repository,
	eventBus shared.EventBus,
) *DeleteSessionHandler {
	return &DeleteSessionHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		eventBus:    eventBus,
	}
}

// Handle executes the delete. The session row goes first so the readiness
// recompute below only sees the sessions that remain.
func (h *DeleteSessionHandler) Handle(ctx context.Context, cmd DeleteSessionCommand) (*DeleteSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("delete_session: %w", err)
	}

	sess, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("delete_session: %w", err)
	}
	if sess.UserID != cmd.UserID {
		return nil, shared.ErrSessionNotFound
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("delete_session: %w", err)
	}

	if err := h.sessionRepo.Delete(ctx, cmd.SessionID); err != nil {
		return nil, fmt.Errorf("delete_session: failed to delete session: %w", err)
	}

	usr.Practice.AddPoints(-sess.PointsEarned)
	if err := h.userRepo.Update(ctx, usr); err != nil {
		return nil, fmt.Errorf("delete_session: failed to update user: %w", err)
	}

	// Reverse the session's contribution to every linked task and rescore
	// from the sessions that remain.
	for _, link := range sess.TaskLinks {
		t, err := h.taskRepo.GetByID(ctx, link.TaskID)
		if err != nil {
			if shared.IsNotFound(err) {
				continue // task deleted since; nothing to reverse
			}
			return nil, fmt.Errorf("delete_session: %w", err)
		}
		t.ReversePractice(link.MinutesSpent)

		ratings, err := h.sessionRepo.RatingsForTask(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("delete_session: failed to load task ratings: %w", err)
		}
		t.Rescore(toSessionRatings(ratings))

		if err := h.taskRepo.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("delete_session: failed to update task: %w", err)
		}
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewSessionDeletedEvent(usr.ID, sess.ID, sess.PointsEarned))
	}

	return &DeleteSessionResult{
		PointsReversed: sess.PointsEarned,
		TotalPoints:    usr.Practice.TotalPoints,
		Level:          usr.Practice.Level,
	}, nil
}
