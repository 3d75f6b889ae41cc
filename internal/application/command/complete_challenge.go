package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE CHALLENGE COMMAND
// Checks a member's progress against an active challenge and records the
// completion with its bonus points when the goal is met. Completing twice
// is rejected by the store, so the bonus is granted exactly once.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteChallengeCommand asks to mark a challenge complete for a member.
type CompleteChallengeCommand struct {
	ChallengeID string
	UserID      string

	// Now is the evaluation instant (defaults to now if zero).
	Now time.Time
}

// Validate validates the command.
func (c CompleteChallengeCommand) Validate() error {
	if c.ChallengeID == "" {
		return errors.New("complete_challenge: challenge_id is required")
	}
	if c.UserID == "" {
		return errors.New("complete_challenge: user_id is required")
	}
	return nil
}

// CompleteChallengeResult reports the completion outcome.
type CompleteChallengeResult struct {
	// Completed indicates the goal was met and recorded.
	Completed bool

	// MinutesPracticed inside the window, what the goal was judged on.
	MinutesPracticed int

	// PointsAwarded is the bonus XP granted.
	PointsAwarded int
}

// CompleteChallengeHandler handles the CompleteChallengeCommand.
type CompleteChallengeHandler struct {
	userRepo      user.Repository
	sessionRepo   session.Repository
	challengeRepo challenge.Repository
	eventBus      shared.EventBus
	loc           *time.Location
}

// NewCompleteChallengeHandler creates a new CompleteChallengeHandler.
func NewCompleteChallengeHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	challengeRepo challenge.Repository,
	eventBus shared.EventBus,
	loc *time.Location,
) *CompleteChallengeHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CompleteChallengeHandler{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		challengeRepo: challengeRepo,
		eventBus:      eventBus,
		loc:           loc,
	}
}

// Handle evaluates and records the completion.
func (h *CompleteChallengeHandler) Handle(ctx context.Context, cmd CompleteChallengeCommand) (*CompleteChallengeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	ch, err := h.challengeRepo.GetByID(ctx, cmd.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}
	if !ch.IsActive(now, h.loc) {
		return nil, shared.ErrChallengeInactive
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}
	if usr.EnsembleID != ch.EnsembleID {
		return nil, shared.ErrChallengeNotFound
	}

	done, err := h.challengeRepo.HasCompleted(ctx, ch.ID, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}
	if done {
		return nil, shared.ErrAlreadyCompleted
	}

	minutes, err := h.minutesInWindow(ctx, usr.ID, ch)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}

	met, err := h.goalMet(ctx, ch, minutes)
	if err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}
	if !met {
		return &CompleteChallengeResult{Completed: false, MinutesPracticed: minutes}, nil
	}

	comp := &challenge.Completion{
		ID:            uuid.NewString(),
		ChallengeID:   ch.ID,
		UserID:        usr.ID,
		CompletedAt:   now,
		PointsAwarded: ch.BonusPoints,
	}
	if err := h.challengeRepo.RecordCompletion(ctx, comp); err != nil {
		return nil, fmt.Errorf("complete_challenge: %w", err)
	}

	if ch.BonusPoints > 0 {
		usr.Practice.AddPoints(ch.BonusPoints)
		if err := h.userRepo.Update(ctx, usr); err != nil {
			return nil, fmt.Errorf("complete_challenge: failed to award bonus: %w", err)
		}
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewChallengeCompletedEvent(ch.ID, usr.ID))
	}

	return &CompleteChallengeResult{
		Completed:        true,
		MinutesPracticed: minutes,
		PointsAwarded:    ch.BonusPoints,
	}, nil
}

// minutesInWindow sums the member's practiced minutes inside the challenge
// window, end date inclusive.
func (h *CompleteChallengeHandler) minutesInWindow(ctx context.Context, userID string, ch *challenge.Challenge) (int, error) {
	from := timeutil.StartOfDay(ch.StartDate, h.loc)
	to := timeutil.EndOfDay(ch.EndDate, h.loc)

	sums, err := h.sessionRepo.SumBetween(ctx, []string{userID}, from, to)
	if err != nil {
		return 0, err
	}
	return sums[userID].Minutes, nil
}

// goalMet judges the member's progress against the challenge goal.
func (h *CompleteChallengeHandler) goalMet(ctx context.Context, ch *challenge.Challenge, minutes int) (bool, error) {
	switch ch.GoalType {
	case challenge.GoalIndividualMinutes, challenge.GoalSectionCompetition:
		// Section competition still pays out per member on the individual
		// target; the section ranking is a read-side concern.
		return minutes >= ch.TargetMinutes, nil
	case challenge.GoalAllMembersPractice:
		return minutes > 0, nil
	default:
		return false, shared.ErrInvalidGoalType
	}
}
