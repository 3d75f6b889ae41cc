// Package shared holds the domain vocabulary used by every aggregate:
// error kinds, domain events, and the bus contracts. It depends on nothing
// outside the standard library.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete domain errors carry one of these so callers can
// branch with errors.Is without matching message strings.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	ErrInvalidState     = errors.New("invalid state")
	ErrAlreadyProcessed = errors.New("already processed")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// DomainError is a failure bound to a domain and operation. Its Kind makes
// it matchable with errors.Is; Err carries an optional cause.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is matches against the Kind as well as the wrapped cause.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

// NewDomainError creates a domain error without a cause.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Message: message}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrEmailTaken        = NewDomainError("user", "Create", ErrAlreadyExists, "email already registered")
	ErrInvalidEmail      = NewDomainError("user", "Validate", ErrInvalidFormat, "invalid email address")
	ErrTeacherNotFound   = NewDomainError("user", "FindTeacher", ErrNotFound, "teacher not found for code")
	ErrNotATeacher       = NewDomainError("user", "Link", ErrInvalidState, "user is not a teacher")
	ErrInvalidCredential = NewDomainError("user", "Authenticate", ErrUnauthorized, "invalid email or password")
)

// Session domain errors
var (
	ErrSessionNotFound     = NewDomainError("session", "Find", ErrNotFound, "practice session not found")
	ErrInvalidDuration     = NewDomainError("session", "Validate", ErrValueOutOfRange, "duration must be positive")
	ErrInvalidRating       = NewDomainError("session", "Validate", ErrValueOutOfRange, "rating must be between 1 and 5")
	ErrInvalidMinutesSpent = NewDomainError("session", "Validate", ErrValueOutOfRange, "minutes spent must be positive")
)

// Task domain errors
var (
	ErrTaskNotFound    = NewDomainError("task", "Find", ErrNotFound, "practice task not found")
	ErrInvalidEstimate = NewDomainError("task", "Validate", ErrValueOutOfRange, "estimated minutes must be positive")
	ErrInvalidCategory = NewDomainError("task", "Validate", ErrInvalidInput, "invalid task category")
	ErrInvalidStatus   = NewDomainError("task", "Validate", ErrInvalidInput, "invalid task status")
)

// Badge domain errors
var (
	ErrBadgeNotFound = NewDomainError("badge", "Find", ErrNotFound, "badge not found")
	ErrUnknownBadge  = NewDomainError("badge", "Validate", ErrInvalidInput, "unknown badge type")
	ErrBadgeHeld     = NewDomainError("badge", "Grant", ErrAlreadyExists, "badge already granted")
)

// Ensemble domain errors
var (
	ErrEnsembleNotFound  = NewDomainError("ensemble", "Find", ErrNotFound, "ensemble not found")
	ErrInvalidJoinCode   = NewDomainError("ensemble", "Join", ErrNotFound, "no ensemble for join code")
	ErrRehearsalNotFound = NewDomainError("ensemble", "FindRehearsal", ErrNotFound, "rehearsal not found")
)

// Challenge domain errors
var (
	ErrChallengeNotFound = NewDomainError("challenge", "Find", ErrNotFound, "challenge not found")
	ErrChallengeInactive = NewDomainError("challenge", "Complete", ErrInvalidState, "challenge is not active")
	ErrAlreadyCompleted  = NewDomainError("challenge", "Complete", ErrAlreadyProcessed, "challenge already completed by user")
	ErrInvalidGoalType   = NewDomainError("challenge", "Validate", ErrInvalidInput, "invalid challenge goal type")
	ErrInvalidDateRange  = NewDomainError("challenge", "Validate", ErrInvalidInput, "end date before start date")
)

// Note domain errors
var (
	ErrNoteNotFound = NewDomainError("note", "Find", ErrNotFound, "note not found")
)

// IsNotFound reports whether err is any not-found kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err is any duplicate kind.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation reports whether err stems from rejected input.
func IsValidation(err error) bool {
	for _, kind := range []error{ErrInvalidID, ErrInvalidInput, ErrEmptyValue, ErrValueOutOfRange, ErrInvalidFormat} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
