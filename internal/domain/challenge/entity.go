// Package challenge contains group challenge domain logic: time-boxed goals
// an ensemble works toward together.
package challenge

import (
	"errors"
	"strings"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// GoalType defines how a challenge is won.
type GoalType string

const (
	// GoalIndividualMinutes - each member individually practices the target
	// minutes inside the challenge window.
	GoalIndividualMinutes GoalType = "individual_minutes"
	// GoalAllMembersPractice - every member logs at least one session
	// inside the window.
	GoalAllMembersPractice GoalType = "all_members_practice"
	// GoalSectionCompetition - sections compete on total minutes.
	GoalSectionCompetition GoalType = "section_competition"
)

// IsValid checks that the goal type is one of the known values.
func (g GoalType) IsValid() bool {
	switch g {
	case GoalIndividualMinutes, GoalAllMembersPractice, GoalSectionCompetition:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a challenge.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: GROUP CHALLENGE
// ══════════════════════════════════════════════════════════════════════════════

// Challenge is one time-boxed ensemble goal.
type Challenge struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// EnsembleID is the owning ensemble.
	EnsembleID string

	// Title of the challenge.
	Title string

	// Description is optional free text.
	Description string

	// GoalType defines the win condition.
	GoalType GoalType

	// TargetMinutes is the per-member goal for individual_minutes and the
	// per-section goal for section_competition; unused for
	// all_members_practice.
	TargetMinutes int

	// BonusPoints granted to each member on completion.
	BonusPoints int

	// StartDate and EndDate bound the window, compared by calendar date.
	StartDate time.Time
	EndDate   time.Time

	// Status lifecycle state.
	Status Status

	// CreatedBy is the user who created the challenge.
	CreatedBy string

	// CreatedAt - record creation time.
	CreatedAt time.Time
}

// NewChallengeParams contains parameters for creating a challenge.
type NewChallengeParams struct {
	ID            string
	EnsembleID    string
	Title         string
	Description   string
	GoalType      GoalType
	TargetMinutes int
	BonusPoints   int
	StartDate     time.Time
	EndDate       time.Time
	CreatedBy     string
}

// NewChallenge creates an active challenge with validation.
func NewChallenge(params NewChallengeParams) (*Challenge, error) {
	if params.ID == "" {
		return nil, errors.New("challenge id is required")
	}
	if params.EnsembleID == "" {
		return nil, shared.ErrEnsembleNotFound
	}

	title := strings.TrimSpace(params.Title)
	if len(title) == 0 || len(title) > 255 {
		return nil, shared.NewDomainError("challenge", "Validate", shared.ErrInvalidInput,
			"title must be 1-255 chars")
	}

	if !params.GoalType.IsValid() {
		return nil, shared.ErrInvalidGoalType
	}

	if params.GoalType != GoalAllMembersPractice && params.TargetMinutes <= 0 {
		return nil, shared.NewDomainError("challenge", "Validate", shared.ErrValueOutOfRange,
			"target minutes must be positive")
	}

	if params.EndDate.Before(params.StartDate) {
		return nil, shared.ErrInvalidDateRange
	}

	return &Challenge{
		ID:            params.ID,
		EnsembleID:    params.EnsembleID,
		Title:         title,
		Description:   strings.TrimSpace(params.Description),
		GoalType:      params.GoalType,
		TargetMinutes: params.TargetMinutes,
		BonusPoints:   params.BonusPoints,
		StartDate:     params.StartDate,
		EndDate:       params.EndDate,
		Status:        StatusActive,
		CreatedBy:     params.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// IsActive reports whether the challenge accepts progress on day now.
// The end date is inclusive, compared by calendar date.
func (c *Challenge) IsActive(now time.Time, loc *time.Location) bool {
	if c.Status != StatusActive {
		return false
	}
	day := timeutil.StartOfDay(now, loc)
	return !day.Before(timeutil.StartOfDay(c.StartDate, loc)) &&
		!day.After(timeutil.StartOfDay(c.EndDate, loc))
}

// PastDeadline reports whether the challenge window has closed.
func (c *Challenge) PastDeadline(now time.Time, loc *time.Location) bool {
	return timeutil.StartOfDay(now, loc).After(timeutil.StartOfDay(c.EndDate, loc))
}

// Expire moves an active challenge past its deadline to expired.
// Returns shared.ErrInvalidState if the challenge is not active.
func (c *Challenge) Expire() error {
	if c.Status != StatusActive {
		return shared.ErrInvalidState
	}
	c.Status = StatusExpired
	return nil
}

// MarkCompleted moves the challenge to completed.
func (c *Challenge) MarkCompleted() {
	c.Status = StatusCompleted
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// Completion records one member finishing a challenge.
type Completion struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// ChallengeID references the challenge.
	ChallengeID string

	// UserID is the member who completed it.
	UserID string

	// CompletedAt is when the goal was met.
	CompletedAt time.Time

	// PointsAwarded is the bonus XP granted.
	PointsAwarded int
}
