// Package task contains the practice task domain model. A task is one unit
// of work a musician prepares (a piece, an etude, a passage) with an
// estimate, accumulated practice statistics, and a readiness score.
package task

import (
	"errors"
	"strings"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Category classifies what kind of work a task is.
type Category string

const (
	CategoryRepertoire   Category = "repertoire"
	CategoryTechnique    Category = "technique"
	CategorySightReading Category = "sight_reading"
	CategorySectionWork  Category = "section_work"
)

// IsValid checks that the category is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRepertoire, CategoryTechnique, CategorySightReading, CategorySectionWork:
		return true
	default:
		return false
	}
}

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusNotStarted - no practice recorded yet.
	StatusNotStarted Status = "not_started"
	// StatusInProgress - at least one session touched the task.
	StatusInProgress Status = "in_progress"
	// StatusReady - marked performance-ready.
	StatusReady Status = "ready"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusReady:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PRACTICE TASK
// ══════════════════════════════════════════════════════════════════════════════

// Task is one unit of practice work.
type Task struct {
	// ID - internal unique identifier (UUID string).
	ID string

	// UserID is the musician the task belongs to.
	UserID string

	// Title of the piece or exercise.
	Title string

	// Description is optional free text.
	Description string

	// Category of the work.
	Category Category

	// Difficulty is a 1-5 grade.
	Difficulty int

	// EstimatedMinutes is the expected total effort to get the task ready.
	EstimatedMinutes int

	// TotalTimePracticed is the accumulated minutes from session links.
	TotalTimePracticed int

	// PracticeCount is how many sessions have touched the task.
	PracticeCount int

	// Status lifecycle state.
	Status Status

	// ReadinessScore is the cached 0-100 readiness value, recomputed on
	// every write that touches the task and again on list reads.
	ReadinessScore float64

	// RehearsalID optionally ties the task to an upcoming rehearsal.
	RehearsalID string

	// AssignedBy is the teacher who assigned the task, empty for
	// self-created tasks.
	AssignedBy string

	// DueDate is an optional deadline.
	DueDate *time.Time

	// CreatedAt - record creation time.
	CreatedAt time.Time

	// UpdatedAt - last update time.
	UpdatedAt time.Time
}

// DefaultEstimatedMinutes is assumed when no estimate is given.
const DefaultEstimatedMinutes = 30

// NewTaskParams contains parameters for creating a task.
type NewTaskParams struct {
	ID               string
	UserID           string
	Title            string
	Description      string
	Category         Category
	Difficulty       int
	EstimatedMinutes int
	RehearsalID      string
	AssignedBy       string
	DueDate          *time.Time
}

// NewTask creates a practice task with validation.
func NewTask(params NewTaskParams) (*Task, error) {
	if params.ID == "" {
		return nil, errors.New("task id is required")
	}
	if params.UserID == "" {
		return nil, shared.ErrUserNotFound
	}

	title := strings.TrimSpace(params.Title)
	if len(title) == 0 || len(title) > 255 {
		return nil, shared.NewDomainError("task", "Validate", shared.ErrInvalidInput,
			"title must be 1-255 chars")
	}

	if !params.Category.IsValid() {
		return nil, shared.ErrInvalidCategory
	}

	if params.Difficulty < 1 || params.Difficulty > 5 {
		return nil, shared.NewDomainError("task", "Validate", shared.ErrValueOutOfRange,
			"difficulty must be between 1 and 5")
	}

	estimate := params.EstimatedMinutes
	if estimate == 0 {
		estimate = DefaultEstimatedMinutes
	}
	if estimate < 0 {
		return nil, shared.ErrInvalidEstimate
	}

	now := time.Now().UTC()

	return &Task{
		ID:               params.ID,
		UserID:           params.UserID,
		Title:            title,
		Description:      strings.TrimSpace(params.Description),
		Category:         params.Category,
		Difficulty:       params.Difficulty,
		EstimatedMinutes: estimate,
		Status:           StatusNotStarted,
		RehearsalID:      params.RehearsalID,
		AssignedBy:       params.AssignedBy,
		DueDate:          params.DueDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// RecordPractice accumulates minutes from one session link and moves a
// fresh task into progress. A task already marked ready stays ready.
func (t *Task) RecordPractice(minutes int) error {
	if minutes <= 0 {
		return shared.ErrInvalidMinutesSpent
	}
	t.TotalTimePracticed += minutes
	t.PracticeCount++
	if t.Status == StatusNotStarted {
		t.Status = StatusInProgress
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ReversePractice subtracts a deleted session's contribution, flooring the
// counters at zero. The status is not rolled back.
func (t *Task) ReversePractice(minutes int) {
	t.TotalTimePracticed -= minutes
	if t.TotalTimePracticed < 0 {
		t.TotalTimePracticed = 0
	}
	t.PracticeCount--
	if t.PracticeCount < 0 {
		t.PracticeCount = 0
	}
	t.UpdatedAt = time.Now().UTC()
}

// MarkReady sets the ready status explicitly.
func (t *Task) MarkReady() {
	t.Status = StatusReady
	t.UpdatedAt = time.Now().UTC()
}

// EditParams carries the field changes of a task edit. Nil pointers leave
// the current value alone.
type EditParams struct {
	Title            *string
	Description      *string
	Category         *Category
	Difficulty       *int
	EstimatedMinutes *int
	DueDate          *time.Time
}

// Edit applies the provided changes under the same validation rules as
// NewTask. Accumulated practice statistics are untouched; the caller
// rescores readiness afterwards since the estimate may have moved.
func (t *Task) Edit(p EditParams) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if len(title) == 0 || len(title) > 255 {
			return shared.NewDomainError("task", "Edit", shared.ErrInvalidInput,
				"title must be 1-255 chars")
		}
		t.Title = title
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		if !p.Category.IsValid() {
			return shared.ErrInvalidCategory
		}
		t.Category = *p.Category
	}
	if p.Difficulty != nil {
		if *p.Difficulty < 1 || *p.Difficulty > 5 {
			return shared.NewDomainError("task", "Edit", shared.ErrValueOutOfRange,
				"difficulty must be between 1 and 5")
		}
		t.Difficulty = *p.Difficulty
	}
	if p.EstimatedMinutes != nil {
		if *p.EstimatedMinutes <= 0 {
			return shared.ErrInvalidEstimate
		}
		t.EstimatedMinutes = *p.EstimatedMinutes
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}

	t.UpdatedAt = time.Now().UTC()
	return nil
}
