package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/badge"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET USER STATS QUERY
// The profile dashboard: points, level, streak, weekly goal progress, and
// earned badges in one read.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserStatsQuery contains the stats request parameters.
type GetUserStatsQuery struct {
	// UserID is the user to report on.
	UserID string

	// At is the reference instant for "this week" (defaults to now if zero).
	At time.Time
}

// BadgeDTO is one earned badge in the stats response.
type BadgeDTO struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

// UserStatsDTO is the dashboard payload.
type UserStatsDTO struct {
	UserID            string  `json:"user_id"`
	Name              string  `json:"name"`
	Instrument        string  `json:"instrument,omitempty"`
	TotalPoints       int     `json:"total_points"`
	Level             int     `json:"level"`
	PointsToNextLevel int     `json:"points_to_next_level"`
	StreakCount       int     `json:"streak_count"`
	SessionCount      int     `json:"session_count"`
	WeeklyMinutes     int     `json:"weekly_minutes"`
	WeeklyGoalMinutes int     `json:"weekly_goal_minutes"`
	WeeklyProgress    float64 `json:"weekly_progress"`

	Badges []BadgeDTO `json:"badges"`
}

// GetUserStatsHandler handles the GetUserStatsQuery.
type GetUserStatsHandler struct {
	userRepo    user.Repository
	sessionRepo session.Repository
	badgeRepo   badge.Repository
	loc         *time.Location
}

// NewGetUserStatsHandler creates a new GetUserStatsHandler.
func NewGetUserStatsHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	badgeRepo badge.Repository,
	loc *time.Location,
) *GetUserStatsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetUserStatsHandler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		badgeRepo:   badgeRepo,
		loc:         loc,
	}
}

// Handle assembles the dashboard.
func (h *GetUserStatsHandler) Handle(ctx context.Context, q GetUserStatsQuery) (*UserStatsDTO, error) {
	if q.UserID == "" {
		return nil, errors.New("get_user_stats: user_id is required")
	}

	at := q.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	usr, err := h.userRepo.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: %w", err)
	}

	week := timeutil.CurrentWeek(at, h.loc)
	sums, err := h.sessionRepo.SumBetween(ctx, []string{usr.ID}, week.Start, week.End.Add(time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to sum weekly minutes: %w", err)
	}
	weeklyMinutes := sums[usr.ID].Minutes

	count, err := h.sessionRepo.CountByUser(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to count sessions: %w", err)
	}

	badges, err := h.badgeRepo.ListByUser(ctx, usr.ID)
	if err != nil {
		return nil, fmt.Errorf("get_user_stats: failed to list badges: %w", err)
	}

	badgeDTOs := make([]BadgeDTO, 0, len(badges))
	for _, b := range badges {
		dto := BadgeDTO{Type: string(b.Type), EarnedAt: b.EarnedAt}
		if def, ok := badge.DefinitionFor(b.Type); ok {
			dto.Title = def.Title
			dto.Description = def.Description
		}
		badgeDTOs = append(badgeDTOs, dto)
	}

	return &UserStatsDTO{
		UserID:            usr.ID,
		Name:              usr.Name,
		Instrument:        usr.Instrument,
		TotalPoints:       usr.Practice.TotalPoints,
		Level:             usr.Practice.Level,
		PointsToNextLevel: user.PointsToNextLevel(usr.Practice.TotalPoints),
		StreakCount:       usr.Practice.StreakCount,
		SessionCount:      count,
		WeeklyMinutes:     weeklyMinutes,
		WeeklyGoalMinutes: usr.WeeklyGoalMinutes,
		WeeklyProgress:    usr.WeeklyProgressPercent(weeklyMinutes),
		Badges:            badgeDTOs,
	}, nil
}
