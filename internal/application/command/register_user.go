package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the data to create an account.
type RegisterUserCommand struct {
	Name              string
	Email             string
	Password          string
	Instrument        string
	Section           string
	Role              string
	WeeklyGoalMinutes int
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if c.Name == "" {
		return errors.New("register_user: name is required")
	}
	if c.Email == "" {
		return errors.New("register_user: email is required")
	}
	if len(c.Password) < 8 {
		return shared.NewDomainError("user", "Register", shared.ErrInvalidInput,
			"password must be at least 8 characters")
	}
	return nil
}

// RegisterUserResult contains the created account.
type RegisterUserResult struct {
	User *user.User

	// TeacherCode is set when a teacher account was created.
	TeacherCode string
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	userRepo user.Repository
	codes    *CodeGenerator
	eventBus shared.EventBus
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(userRepo user.Repository, codes *CodeGenerator, eventBus shared.EventBus) *RegisterUserHandler {
	return &RegisterUserHandler{userRepo: userRepo, codes: codes, eventBus: eventBus}
}

// Handle creates the account. Teacher accounts get a unique 6-digit code
// students use to link.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	if _, err := h.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, shared.ErrEmailTaken
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register_user: failed to hash password: %w", err)
	}

	usr, err := user.NewUser(user.NewUserParams{
		ID:                uuid.NewString(),
		Name:              cmd.Name,
		Email:             email,
		PasswordHash:      string(hash),
		Instrument:        cmd.Instrument,
		Section:           cmd.Section,
		Role:              user.Role(cmd.Role),
		WeeklyGoalMinutes: cmd.WeeklyGoalMinutes,
	})
	if err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	result := &RegisterUserResult{User: usr}

	if usr.IsTeacher() {
		code, err := h.codes.UniqueTeacherCode(ctx, func(ctx context.Context, code shared.JoinCode) (bool, error) {
			_, err := h.userRepo.GetByTeacherCode(ctx, code)
			if err == nil {
				return true, nil
			}
			if shared.IsNotFound(err) {
				return false, nil
			}
			return false, err
		})
		if err != nil {
			return nil, fmt.Errorf("register_user: failed to generate teacher code: %w", err)
		}
		usr.TeacherCode = code
		result.TeacherCode = code.String()
	}

	if err := h.userRepo.Create(ctx, usr); err != nil {
		return nil, fmt.Errorf("register_user: %w", err)
	}

	if h.eventBus != nil {
		_ = h.eventBus.Publish(shared.NewBaseEvent(shared.EventUserRegistered, usr.ID))
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATE COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AuthenticateCommand contains login credentials.
type AuthenticateCommand struct {
	Email    string
	Password string
}

// AuthenticateHandler verifies credentials against the stored bcrypt hash.
type AuthenticateHandler struct {
	userRepo user.Repository
}

// NewAuthenticateHandler creates a new AuthenticateHandler.
func NewAuthenticateHandler(userRepo user.Repository) *AuthenticateHandler {
	return &AuthenticateHandler{userRepo: userRepo}
}

// Handle returns the user when the credentials match. Unknown email and
// wrong password fail with the same error so the endpoint does not leak
// which emails exist.
func (h *AuthenticateHandler) Handle(ctx context.Context, cmd AuthenticateCommand) (*user.User, error) {
	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, shared.ErrInvalidCredential
	}

	usr, err := h.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrInvalidCredential
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(cmd.Password)) != nil {
		return nil, shared.ErrInvalidCredential
	}

	return usr, nil
}
