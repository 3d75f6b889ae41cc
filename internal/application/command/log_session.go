// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicebeats/practice-hub/internal/domain/badge"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/task"
	"github.com/practicebeats/practice-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG SESSION COMMAND
// The heart of the engine: records a practice sitting and runs every derived
// update in order - streak, points, level, task progress, readiness, badges.
// ══════════════════════════════════════════════════════════════════════════════

// TaskTime attributes minutes of the session to one task.
type TaskTime struct {
	TaskID       string
	MinutesSpent int
}

// LogSessionCommand contains the data to log a practice session.
type LogSessionCommand struct {
	// UserID is the musician logging the session.
	UserID string

	// StartTime is when the sitting began (defaults to now if zero).
	StartTime time.Time

	// DurationMinutes is the length of the sitting.
	DurationMinutes int

	// FocusRating, ProgressRating, EnergyRating are optional 1-5
	// self-assessments.
	FocusRating    *int
	ProgressRating *int
	EnergyRating   *int

	// Notes is free-form text.
	Notes string

	// Tasks attributes time to practice tasks.
	Tasks []TaskTime
}

// Validate validates the command.
func (c LogSessionCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("log_session: user_id is required")
	}
	if c.DurationMinutes <= 0 {
		return shared.ErrInvalidDuration
	}
	for _, t := range c.Tasks {
		if t.TaskID == "" {
			return errors.New("log_session: task_id is required on every task link")
		}
		if t.MinutesSpent <= 0 {
			return shared.ErrInvalidMinutesSpent
		}
	}
	return nil
}

// LogSessionResult contains everything the session changed.
type LogSessionResult struct {
	// SessionID is the new session's ID.
	SessionID string

	// PointsEarned by the session.
	PointsEarned int

	// StreakCount after the session.
	StreakCount int

	// TotalPoints and Level after the session.
	TotalPoints int
	Level       int

	// LeveledUp indicates the session crossed a level boundary.
	LeveledUp bool

	// BadgesEarned lists newly granted badges, empty most of the time.
	BadgesEarned []badge.Type

	// TaskReadiness maps updated task IDs to their new readiness score.
	TaskReadiness map[string]float64
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LogSessionHandler handles the LogSessionCommand.
type LogSessionHandler struct {
	userRepo    user.Repository
	sessionRepo session.Repository
	taskRepo    task.Repository
	badgeRepo   badge.Repository
	eventBus    shared.EventBus
	loc         *time.Location
}

// NewLogSessionHandler creates a new LogSessionHandler. loc is the
// application timezone used for streak days and time-of-day badges.
func NewLogSessionHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	taskRepo task.Repository,
	badgeRepo badge.Repository,
	eventBus shared.EventBus,
	loc *time.Location,
) *LogSessionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LogSessionHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		taskRepo:    taskRepo,
		badgeRepo:   badgeRepo,
		eventBus:    eventBus,
		loc:         loc,
	}
}

// Handle executes the log session command. The user lookup runs before any
// mutation: an unknown user leaves every table untouched.
func (h *LogSessionHandler) Handle(ctx context.Context, cmd LogSessionCommand) (*LogSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("log_session: %w", err)
	}

	startTime := cmd.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}

	usr, err := h.userRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("log_session: %w", err)
	}

	// Referenced tasks must exist and belong to the user before anything
	// is written.
	tasks := make(map[string]*task.Task, len(cmd.Tasks))
	for _, link := range cmd.Tasks {
		t, err := h.taskRepo.GetByID(ctx, link.TaskID)
		if err != nil {
			return nil, fmt.Errorf("log_session: %w", err)
		}
		if t.UserID != usr.ID {
			return nil, shared.ErrTaskNotFound
		}
		tasks[link.TaskID] = t
	}

	// Streak first: the updated streak feeds the point multiplier.
	oldStreak, newStreak := usr.ApplyPractice(startTime, h.loc)

	links := make([]session.TaskLink, 0, len(cmd.Tasks))
	for _, t := range cmd.Tasks {
		links = append(links, session.TaskLink{TaskID: t.TaskID, MinutesSpent: t.MinutesSpent})
	}

	sess, err := session.NewSession(session.NewSessionParams{
		ID:              uuid.NewString(),
		UserID:          usr.ID,
		StartTime:       startTime,
		DurationMinutes: cmd.DurationMinutes,
		FocusRating:     cmd.FocusRating,
		ProgressRating:  cmd.ProgressRating,
		EnergyRating:    cmd.EnergyRating,
		Notes:           cmd.Notes,
		TaskLinks:       links,
	})
	if err != nil {
		return nil, fmt.Errorf("log_session: %w", err)
	}

	earned := sess.ApplyPoints(newStreak)
	oldLevel, newLevel := usr.Practice.AddPoints(earned)

	if err := h.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("log_session: failed to save session: %w", err)
	}
	if err := h.userRepo.Update(ctx, usr); err != nil {
		return nil, fmt.Errorf("log_session: failed to update user: %w", err)
	}

	result := &LogSessionResult{
		SessionID:     sess.ID,
		PointsEarned:  earned,
		StreakCount:   newStreak,
		TotalPoints:   usr.Practice.TotalPoints,
		Level:         newLevel,
		LeveledUp:     newLevel > oldLevel,
		TaskReadiness: make(map[string]float64, len(tasks)),
	}

	// Task progress and readiness.
	for _, link := range cmd.Tasks {
		t := tasks[link.TaskID]
		if err := t.RecordPractice(link.MinutesSpent); err != nil {
			return nil, fmt.Errorf("log_session: %w", err)
		}
		ratings, err := h.sessionRepo.RatingsForTask(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("log_session: failed to load task ratings: %w", err)
		}
		t.Rescore(toSessionRatings(ratings))
		if err := h.taskRepo.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("log_session: failed to update task: %w", err)
		}
		result.TaskReadiness[t.ID] = t.ReadinessScore
	}

	// Badges last, against the fully updated state.
	newBadges, err := h.grantBadges(ctx, usr, sess, newStreak)
	if err != nil {
		return nil, fmt.Errorf("log_session: %w", err)
	}
	result.BadgesEarned = newBadges

	h.publishEvents(usr, sess, result, oldStreak, oldLevel)

	return result, nil
}

func (h *LogSessionHandler) grantBadges(
	ctx context.Context,
	usr *user.User,
	sess *session.PracticeSession,
	streak int,
) ([]badge.Type, error) {
	held, err := h.badgeRepo.HeldTypes(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load held badges: %w", err)
	}

	count, err := h.sessionRepo.CountByUser(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	var focus *int
	if sess.FocusRating != nil {
		v := sess.FocusRating.Int()
		focus = &v
	}

	earned := badge.Evaluate(badge.Context{
		StreakCount:     streak,
		SessionCount:    count,
		DurationMinutes: sess.DurationMinutes,
		FocusRating:     focus,
		StartTime:       sess.StartTime,
		Loc:             h.loc,
	}, held)

	for _, t := range earned {
		b, err := badge.New(uuid.NewString(), usr.ID, t, sess.StartTime)
		if err != nil {
			return nil, err
		}
		if err := h.badgeRepo.Grant(ctx, b); err != nil {
			return nil, fmt.Errorf("failed to grant badge %s: %w", t, err)
		}
	}
	return earned, nil
}

func (h *LogSessionHandler) publishEvents(
	usr *user.User,
	sess *session.PracticeSession,
	result *LogSessionResult,
	oldStreak, oldLevel int,
) {
	if h.eventBus == nil {
		return
	}

	_ = h.eventBus.Publish(shared.NewSessionLoggedEvent(
		usr.ID, sess.ID, sess.DurationMinutes, result.PointsEarned, result.StreakCount))

	if result.StreakCount != oldStreak {
		_ = h.eventBus.Publish(shared.NewStreakUpdatedEvent(usr.ID, oldStreak, result.StreakCount))
	}
	if result.LeveledUp {
		_ = h.eventBus.Publish(shared.NewLevelUpEvent(usr.ID, oldLevel, result.Level))
	}
	for _, b := range result.BadgesEarned {
		_ = h.eventBus.Publish(shared.NewBadgeEarnedEvent(usr.ID, string(b)))
	}
}

func toSessionRatings(in []session.TaskSessionRatings) []task.SessionRatings {
	out := make([]task.SessionRatings, len(in))
	for i, r := range in {
		out[i] = task.SessionRatings{Focus: r.Focus, Progress: r.Progress, Energy: r.Energy}
	}
	return out
}
