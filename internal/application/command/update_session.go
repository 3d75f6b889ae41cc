package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE SESSION RATINGS COMMAND
// Lets a musician fill in or revise self-assessments after the fact. Only a
// focus change moves points; the streak transition never re-runs for an
// edit.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateSessionRatingsCommand contains the fields to update. Nil fields are
// left as they are.
type UpdateSessionRatingsCommand struct {
	// SessionID identifies the session.
	SessionID string

	// UserID must own the session.
	UserID string

	FocusRating    *int
	ProgressRating *int
	EnergyRating   *int
	Notes          *string
}

// Validate validates the command.
func (c UpdateSessionRatingsCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("update_session: session_id is required")
	}
	if c.UserID == "" {
		return errors.New("update_session: user_id is required")
	}
	return nil
}

// UpdateSessionRatingsResult reports the outcome of the update.
type UpdateSessionRatingsResult struct {
	// PointsEarned is the session's points after the update.
	PointsEarned int

	// PointsDelta applied to the user's total, zero when focus was
	// untouched.
	PointsDelta int

	// TotalPoints and Level of the user after the update.
	TotalPoints int
	Level       int
}

// UpdateSessionRatingsHandler handles the UpdateSessionRatingsCommand.
type UpdateSessionRatingsHandler struct {
	userRepo    user.Repository
	sessionRepo session.Repository
	eventBus    shared.EventBus
}

// NewUpdateSessionRatingsHandler creates a new UpdateSessionRatingsHandler.
func NewUpdateSessionRatingsHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	eventBus shared.EventBus,
) *UpdateSessionRatingsHandler {
	return &UpdateSessionRatingsHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		eventBus:    eventBus,
	}
}

// Handle executes the update.
func (h *UpdateSessionRatingsHandler) Handle(
	ctx context.Context,
	cmd UpdateSessionRatingsCommand,
) (*UpdateSessionRatingsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_session: %w", err)
	}

	sess, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("update_session: %w", err)
	}
	if sess.UserID != cmd.UserID {
		return nil, shared.ErrSessionNotFound
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("update_session: %w", err)
	}

	focusChanged, err := sess.UpdateRatings(cmd.FocusRating, cmd.ProgressRating, cmd.EnergyRating, cmd.Notes)
	if err != nil {
		return nil, fmt.Errorf("update_session: %w", err)
	}

	result := &UpdateSessionRatingsResult{
		PointsEarned: sess.PointsEarned,
		TotalPoints:  usr.Practice.TotalPoints,
		Level:        usr.Practice.Level,
	}

	if focusChanged {
		delta := sess.RecomputePointsDelta(usr.Practice.StreakCount)
		usr.Practice.AddPoints(delta)

		result.PointsDelta = delta
		result.PointsEarned = sess.PointsEarned
		result.TotalPoints = usr.Practice.TotalPoints
		result.Level = usr.Practice.Level

		if err := h.userRepo.Update(ctx, usr); err != nil {
			return nil, fmt.Errorf("update_session: failed to update user: %w", err)
		}
	}

	if err := h.sessionRepo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("update_session: failed to save session: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewBaseEvent(shared.EventSessionUpdated, sess.ID))
	}

	return result, nil
}
