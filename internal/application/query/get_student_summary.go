package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/note"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT SUMMARY QUERY
// What a teacher sees about a linked student. The practice log itself is
// visible only when the student opted into sharing; tasks and notes the
// teacher created are always visible.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentSummaryQuery contains the request parameters.
type GetStudentSummaryQuery struct {
	TeacherID string
	StudentID string

	// RecentSessions bounds the practice log length (default 10).
	RecentSessions int
}

// Validate validates the query parameters.
func (q *GetStudentSummaryQuery) Validate() error {
	if q.TeacherID == "" {
		return errors.New("teacher_id is required")
	}
	if q.StudentID == "" {
		return errors.New("student_id is required")
	}
	if q.RecentSessions <= 0 {
		q.RecentSessions = 10
	}
	return nil
}

// SessionSummaryDTO is one row of the shared practice log.
type SessionSummaryDTO struct {
	SessionID       string    `json:"session_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	FocusRating     *int      `json:"focus_rating,omitempty"`
	ProgressRating  *int      `json:"progress_rating,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	PointsEarned    int       `json:"points_earned"`
}

// StudentSummaryDTO is the teacher's view of one student.
type StudentSummaryDTO struct {
	StudentID   string `json:"student_id"`
	Name        string `json:"name"`
	Instrument  string `json:"instrument,omitempty"`
	Level       int    `json:"level"`
	StreakCount int    `json:"streak_count"`

	// SharingEnabled tells the teacher whether the log below is populated.
	SharingEnabled bool `json:"sharing_enabled"`

	// RecentSessions is empty unless the student shares their log.
	RecentSessions []SessionSummaryDTO `json:"recent_sessions"`

	// AssignedTasks are the tasks this teacher assigned.
	AssignedTasks []*task.Task `json:"assigned_tasks"`

	// Notes this teacher left for the student.
	Notes []*note.Note `json:"notes"`
}

// GetStudentSummaryHandler handles the GetStudentSummaryQuery.
type GetStudentSummaryHandler struct {
	userRepo    user.Repository
	sessionRepo session.Repository
	taskRepo    task.Repository
	noteRepo    note.Repository
}

// NewGetStudentSummaryHandler creates a new GetStudentSummaryHandler.
func NewGetStudentSummaryHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	taskRepo task.Repository,
	noteRepo note.Repository,
) *GetStudentSummaryHandler {
	return &GetStudentSummaryHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		noteRepo:    noteRepo,
	}
}

// Handle assembles the summary, enforcing the teacher link and the sharing
// opt-in.
func (h *GetStudentSummaryHandler) Handle(ctx context.Context, q GetStudentSummaryQuery) (*StudentSummaryDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_student_summary: %w", err)
	}

	student, err := h.userRepo.GetByID(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get_student_summary: %w", err)
	}
	if student.TeacherID != q.TeacherID {
		return nil, shared.NewDomainError("user", "StudentSummary", shared.ErrForbidden,
			"student is not linked to this teacher")
	}

	summary := &StudentSummaryDTO{
		StudentID:      student.ID,
		Name:           student.Name,
		Instrument:     student.Instrument,
		Level:          student.Practice.Level,
		StreakCount:    student.Practice.StreakCount,
		SharingEnabled: student.SharePracticeWithTeacher,
		RecentSessions: []SessionSummaryDTO{},
	}

	if student.SharePracticeWithTeacher {
		sessions, err := h.sessionRepo.ListByUser(ctx, student.ID, q.RecentSessions)
		if err != nil {
			return nil, fmt.Errorf("get_student_summary: failed to list sessions: %w", err)
		}
		for _, s := range sessions {
			row := SessionSummaryDTO{
				SessionID:       s.ID,
				StartTime:       s.StartTime,
				DurationMinutes: s.DurationMinutes,
				Notes:           s.Notes,
				PointsEarned:    s.PointsEarned,
			}
			if s.FocusRating != nil {
				v := s.FocusRating.Int()
				row.FocusRating = &v
			}
			if s.ProgressRating != nil {
				v := s.ProgressRating.Int()
				row.ProgressRating = &v
			}
			summary.RecentSessions = append(summary.RecentSessions, row)
		}
	}

	tasks, err := h.taskRepo.ListByUser(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("get_student_summary: failed to list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.AssignedBy == q.TeacherID {
			summary.AssignedTasks = append(summary.AssignedTasks, t)
		}
	}

	notes, err := h.noteRepo.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("get_student_summary: failed to list notes: %w", err)
	}
	for _, n := range notes {
		if n.TeacherID == q.TeacherID {
			summary.Notes = append(summary.Notes, n)
		}
	}

	return summary, nil
}
