package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE CHALLENGE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateChallengeCommand contains the data to start a group challenge.
type CreateChallengeCommand struct {
	EnsembleID    string
	Title         string
	Description   string
	GoalType      string
	TargetMinutes int
	BonusPoints   int
	StartDate     time.Time
	EndDate       time.Time
	CreatedBy     string
}

// Validate validates the command.
func (c CreateChallengeCommand) Validate() error {
	if c.EnsembleID == "" {
		return errors.New("create_challenge: ensemble_id is required")
	}
	if c.CreatedBy == "" {
		return errors.New("create_challenge: created_by is required")
	}
	return nil
}

// CreateChallengeHandler handles the CreateChallengeCommand.
type CreateChallengeHandler struct {
	userRepo      user.Repository
	challengeRepo challenge.Repository
}

// NewCreateChallengeHandler creates a new CreateChallengeHandler.
func NewCreateChallengeHandler(userRepo user.Repository, challengeRepo challenge.Repository) *CreateChallengeHandler {
	return &CreateChallengeHandler{userRepo: userRepo, challengeRepo: challengeRepo}
}

// Handle creates the challenge. Only ensemble members can start one.
func (h *CreateChallengeHandler) Handle(ctx context.Context, cmd CreateChallengeCommand) (*challenge.Challenge, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_challenge: %w", err)
	}

	creator, err := h.userRepo.GetByID(ctx, cmd.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("create_challenge: %w", err)
	}
	if creator.EnsembleID != cmd.EnsembleID {
		return nil, shared.NewDomainError("challenge", "Create", shared.ErrForbidden,
			"only members can create challenges for an ensemble")
	}

	ch, err := challenge.NewChallenge(challenge.NewChallengeParams{
		ID:            uuid.NewString(),
		EnsembleID:    cmd.EnsembleID,
		Title:         cmd.Title,
		Description:   cmd.Description,
		GoalType:      challenge.GoalType(cmd.GoalType),
		TargetMinutes: cmd.TargetMinutes,
		BonusPoints:   cmd.BonusPoints,
		StartDate:     cmd.StartDate,
		EndDate:       cmd.EndDate,
		CreatedBy:     cmd.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create_challenge: %w", err)
	}

	if err := h.challengeRepo.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("create_challenge: %w", err)
	}
	return ch, nil
}
