// Package ensemble contains the ensemble domain model: bands and orchestras
// their members belong to, their rehearsals, and the weekly leaderboard.
package ensemble

import (
	"errors"
	"strings"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENSEMBLE
// ══════════════════════════════════════════════════════════════════════════════

// Ensemble is a group of musicians who practice toward shared rehearsals.
type Ensemble struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// Name of the group.
	Name string

	// Description is optional free text.
	Description string

	// JoinCode is the unique 8-digit code members enter to join.
	JoinCode shared.JoinCode

	// CreatedBy is the user who founded the ensemble.
	CreatedBy string

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// NewEnsemble creates an ensemble with validation. The join code must
// already be generated and checked for uniqueness by the caller.
func NewEnsemble(id, name, description, createdBy string, code shared.JoinCode) (*Ensemble, error) {
	if id == "" {
		return nil, errors.New("ensemble id is required")
	}

	name = strings.TrimSpace(name)
	if len(name) == 0 || len(name) > 255 {
		return nil, shared.NewDomainError("ensemble", "Validate", shared.ErrInvalidInput,
			"name must be 1-255 chars")
	}

	if !code.IsValid(shared.EnsembleCodeLength) {
		return nil, shared.ErrInvalidJoinCode
	}

	return &Ensemble{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		JoinCode:    code,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REHEARSAL
// ══════════════════════════════════════════════════════════════════════════════

// Rehearsal is a scheduled meeting of an ensemble. Tasks can be tied to a
// rehearsal so members see what to prepare.
type Rehearsal struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// EnsembleID is the owning ensemble.
	EnsembleID string

	// Title of the rehearsal ("Spring concert run-through").
	Title string

	// Location is optional free text.
	Location string

	// ScheduledAt is when the rehearsal takes place.
	ScheduledAt time.Time

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// NewRehearsal creates a rehearsal with validation.
func NewRehearsal(id, ensembleID, title, location string, scheduledAt time.Time) (*Rehearsal, error) {
	if id == "" {
		return nil, errors.New("rehearsal id is required")
	}
	if ensembleID == "" {
		return nil, shared.ErrEnsembleNotFound
	}

	title = strings.TrimSpace(title)
	if len(title) == 0 || len(title) > 255 {
		return nil, shared.NewDomainError("ensemble", "ValidateRehearsal", shared.ErrInvalidInput,
			"title must be 1-255 chars")
	}
	if scheduledAt.IsZero() {
		return nil, shared.NewDomainError("ensemble", "ValidateRehearsal", shared.ErrEmptyValue,
			"scheduled time is required")
	}

	return &Rehearsal{
		ID:          id,
		EnsembleID:  ensembleID,
		Title:       title,
		Location:    strings.TrimSpace(location),
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// RehearsalEdit carries the field changes of a rehearsal edit. Nil
// pointers leave the current value alone.
type RehearsalEdit struct {
	Title       *string
	Location    *string
	ScheduledAt *time.Time
}

// Edit applies the provided changes under the same validation rules as
// NewRehearsal.
func (r *Rehearsal) Edit(e RehearsalEdit) error {
	if e.Title != nil {
		title := strings.TrimSpace(*e.Title)
		if len(title) == 0 || len(title) > 255 {
			return shared.NewDomainError("ensemble", "EditRehearsal", shared.ErrInvalidInput,
				"title must be 1-255 chars")
		}
		r.Title = title
	}
	if e.Location != nil {
		r.Location = strings.TrimSpace(*e.Location)
	}
	if e.ScheduledAt != nil {
		if e.ScheduledAt.IsZero() {
			return shared.NewDomainError("ensemble", "EditRehearsal", shared.ErrEmptyValue,
				"scheduled time is required")
		}
		r.ScheduledAt = *e.ScheduledAt
	}
	return nil
}
