package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE ENSEMBLE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateEnsembleCommand contains the data to found an ensemble.
type CreateEnsembleCommand struct {
	Name        string
	Description string
	CreatedBy   string
}

// Validate validates the command.
func (c CreateEnsembleCommand) Validate() error {
	if c.Name == "" {
		return errors.New("create_ensemble: name is required")
	}
	if c.CreatedBy == "" {
		return errors.New("create_ensemble: created_by is required")
	}
	return nil
}

// CreateEnsembleHandler handles the CreateEnsembleCommand.
type CreateEnsembleHandler struct {
	userRepo     user.Repository
	ensembleRepo ensemble.Repository
	codes        *CodeGenerator
	eventBus     shared.EventBus
}

// NewCreateEnsembleHandler creates a new CreateEnsembleHandler.
func NewCreateEnsembleHandler(
	userRepo user.Repository,
	ensembleRepo ensemble.Repository,
	codes *CodeGenerator,
	eventBus shared.EventBus,
) *CreateEnsembleHandler {
	return &CreateEnsembleHandler{
		userRepo:     userRepo,
		ensembleRepo: ensembleRepo,
		codes:        codes,
		eventBus:     eventBus,
	}
}

// Handle founds the ensemble with a fresh unique join code and puts the
// founder straight into it.
func (h *CreateEnsembleHandler) Handle(ctx context.Context, cmd CreateEnsembleCommand) (*ensemble.Ensemble, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_ensemble: %w", err)
	}

	founder, err := h.userRepo.GetByID(ctx, cmd.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("create_ensemble: %w", err)
	}

	code, err := h.codes.UniqueEnsembleCode(ctx, func(ctx context.Context, code shared.JoinCode) (bool, error) {
		_, err := h.ensembleRepo.GetByJoinCode(ctx, code)
		if err == nil {
			return true, nil
		}
		if shared.IsNotFound(err) {
			return false, nil
		}
		return false, err
	})
	if err != nil {
		return nil, fmt.Errorf("create_ensemble: failed to generate join code: %w", err)
	}

	ens, err := ensemble.NewEnsemble(uuid.NewString(), cmd.Name, cmd.Description, founder.ID, code)
	if err != nil {
		return nil, fmt.Errorf("create_ensemble: %w", err)
	}

	if err := h.ensembleRepo.Create(ctx, ens); err != nil {
		return nil, fmt.Errorf("create_ensemble: %w", err)
	}

	founder.JoinEnsemble(ens.ID)
	if err := h.userRepo.Update(ctx, founder); err != nil {
		return nil, fmt.Errorf("create_ensemble: failed to add founder: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewBaseEvent(shared.EventEnsembleCreated, ens.ID))
	}

	return ens, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// JOIN ENSEMBLE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// JoinEnsembleCommand joins a user to an ensemble by its 8-digit code.
type JoinEnsembleCommand struct {
	UserID   string
	JoinCode string
}

// JoinEnsembleHandler handles the JoinEnsembleCommand.
type JoinEnsembleHandler struct {
	userRepo     user.Repository
	ensembleRepo ensemble.Repository
	eventBus     shared.EventBus
}

// NewJoinEnsembleHandler creates a new JoinEnsembleHandler.
func NewJoinEnsembleHandler(
	userRepo user.Repository,
	ensembleRepo ensemble.Repository,
	eventBus shared.EventBus,
) *JoinEnsembleHandler {
	return &JoinEnsembleHandler{userRepo: userRepo, ensembleRepo: ensembleRepo, eventBus: eventBus}
}

// Handle resolves the code and moves the user into the ensemble. Joining a
// new ensemble replaces the previous membership.
func (h *JoinEnsembleHandler) Handle(ctx context.Context, cmd JoinEnsembleCommand) (*ensemble.Ensemble, error) {
	code := shared.JoinCode(cmd.JoinCode)
	if !code.IsValid(shared.EnsembleCodeLength) {
		return nil, shared.ErrInvalidJoinCode
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("join_ensemble: %w", err)
	}

	ens, err := h.ensembleRepo.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("join_ensemble: %w", err)
	}

	usr.JoinEnsemble(ens.ID)
	if err := h.userRepo.Update(ctx, usr); err != nil {
		return nil, fmt.Errorf("join_ensemble: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewBaseEvent(shared.EventMemberJoined, ens.ID))
	}

	return ens, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE REHEARSAL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleRehearsalCommand contains the data to schedule a rehearsal.
type ScheduleRehearsalCommand struct {
	EnsembleID  string
	Title       string
	Location    string
	ScheduledAt time.Time
	CreatedBy   string
}

// ScheduleRehearsalHandler handles the ScheduleRehearsalCommand.
type ScheduleRehearsalHandler struct {
	userRepo     user.Repository
	ensembleRepo ensemble.Repository
}

// NewScheduleRehearsalHandler creates a new ScheduleRehearsalHandler.
func NewScheduleRehearsalHandler(userRepo user.Repository, ensembleRepo ensemble.Repository) *ScheduleRehearsalHandler {
	return &ScheduleRehearsalHandler{userRepo: userRepo, ensembleRepo: ensembleRepo}
}

// Handle schedules the rehearsal. Only members of the ensemble can
// schedule for it.
func (h *ScheduleRehearsalHandler) Handle(ctx context.Context, cmd ScheduleRehearsalCommand) (*ensemble.Rehearsal, error) {
	usr, err := h.userRepo.GetByID(ctx, cmd.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("schedule_rehearsal: %w", err)
	}
	if usr.EnsembleID != cmd.EnsembleID {
		return nil, shared.NewDomainError("ensemble", "ScheduleRehearsal", shared.ErrForbidden,
			"only members can schedule rehearsals")
	}

	r, err := ensemble.NewRehearsal(uuid.NewString(), cmd.EnsembleID, cmd.Title, cmd.Location, cmd.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("schedule_rehearsal: %w", err)
	}

	if err := h.ensembleRepo.CreateRehearsal(ctx, r); err != nil {
		return nil, fmt.Errorf("schedule_rehearsal: %w", err)
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE REHEARSAL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// UpdateRehearsalCommand changes rehearsal details. Nil fields keep their
// current value.
type UpdateRehearsalCommand struct {
	RehearsalID string
	UpdatedBy   string
	Title       *string
	Location    *string
	ScheduledAt *time.Time
}

// UpdateRehearsalHandler handles the UpdateRehearsalCommand.
type UpdateRehearsalHandler struct {
	userRepo     user.Repository
	ensembleRepo ensemble.Repository
}

// NewUpdateRehearsalHandler creates a new UpdateRehearsalHandler.
func NewUpdateRehearsalHandler(userRepo user.Repository, ensembleRepo ensemble.Repository) *UpdateRehearsalHandler {
	return &UpdateRehearsalHandler{userRepo: userRepo, ensembleRepo: ensembleRepo}
}

// Handle applies the edit. Only members of the owning ensemble can change
// its rehearsals.
func (h *UpdateRehearsalHandler) Handle(ctx context.Context, cmd UpdateRehearsalCommand) (*ensemble.Rehearsal, error) {
	reh, err := h.ensembleRepo.GetRehearsal(ctx, cmd.RehearsalID)
	if err != nil {
		return nil, fmt.Errorf("update_rehearsal: %w", err)
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UpdatedBy)
	if err != nil {
		return nil, fmt.Errorf("update_rehearsal: %w", err)
	}
	if usr.EnsembleID != reh.EnsembleID {
		return nil, shared.NewDomainError("ensemble", "UpdateRehearsal", shared.ErrForbidden,
			"only members can change rehearsals")
	}

	if err := reh.Edit(ensemble.RehearsalEdit{
		Title:       cmd.Title,
		Location:    cmd.Location,
		ScheduledAt: cmd.ScheduledAt,
	}); err != nil {
		return nil, fmt.Errorf("update_rehearsal: %w", err)
	}

	if err := h.ensembleRepo.UpdateRehearsal(ctx, reh); err != nil {
		return nil, fmt.Errorf("update_rehearsal: %w", err)
	}
	return reh, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CANCEL REHEARSAL COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CancelRehearsalCommand removes a rehearsal from the schedule. Tasks that
// pointed at it lose the link but keep their practice history.
type CancelRehearsalCommand struct {
	RehearsalID string
	CanceledBy  string
}

// CancelRehearsalHandler handles the CancelRehearsalCommand.
type CancelRehearsalHandler struct {
	userRepo     user.Repository
	ensembleRepo ensemble.Repository
}

// NewCancelRehearsalHandler creates a new CancelRehearsalHandler.
func NewCancelRehearsalHandler(userRepo user.Repository, ensembleRepo ensemble.Repository) *CancelRehearsalHandler {
	return &CancelRehearsalHandler{userRepo: userRepo, ensembleRepo: ensembleRepo}
}

// Handle cancels the rehearsal. Only members of the owning ensemble can
// cancel.
func (h *CancelRehearsalHandler) Handle(ctx context.Context, cmd CancelRehearsalCommand) error {
	reh, err := h.ensembleRepo.GetRehearsal(ctx, cmd.RehearsalID)
	if err != nil {
		return fmt.Errorf("cancel_rehearsal: %w", err)
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.CanceledBy)
	if err != nil {
		return fmt.Errorf("cancel_rehearsal: %w", err)
	}
	if usr.EnsembleID != reh.EnsembleID {
		return shared.NewDomainError("ensemble", "CancelRehearsal", shared.ErrForbidden,
			"only members can cancel rehearsals")
	}

	if err := h.ensembleRepo.DeleteRehearsal(ctx, cmd.RehearsalID); err != nil {
		return fmt.Errorf("cancel_rehearsal: %w", err)
	}
	return nil
}
