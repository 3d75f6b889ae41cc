// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
	"github.com/practicebeats/practice-hub/internal/domain/session"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEKLY LEADERBOARD QUERY
// Ranks the members of an ensemble by minutes practiced Monday through
// Sunday of the requested week. Every member appears, zero-minute members
// included.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeeklyLeaderboardQuery contains the leaderboard request parameters.
type GetWeeklyLeaderboardQuery struct {
	// EnsembleID is the ensemble to rank.
	EnsembleID string

	// At is any instant inside the wanted week (defaults to now if zero).
	At time.Time
}

// Validate validates the query parameters.
func (q *GetWeeklyLeaderboardQuery) Validate() error {
	if q.EnsembleID == "" {
		return errors.New("ensemble_id is required")
	}
	return nil
}

// LeaderboardCache caches built leaderboards keyed by ensemble and week
// start. A cache miss returns (nil, nil).
type LeaderboardCache interface {
	Get(ctx context.Context, ensembleID string, weekStart time.Time) (*ensemble.Leaderboard, error)
	Set(ctx context.Context, board *ensemble.Leaderboard, ttl time.Duration) error
	Invalidate(ctx context.Context, ensembleID string, weekStart time.Time) error
}

// leaderboardCacheTTL keeps cached boards short-lived; sessions logged
// mid-week must show up quickly.
const leaderboardCacheTTL = 5 * time.Minute

// GetWeeklyLeaderboardHandler handles the GetWeeklyLeaderboardQuery.
type GetWeeklyLeaderboardHandler struct {
	userRepo     user.Repository
	sessionRepo  session.Repository
	ensembleRepo ensemble.Repository
	cache        LeaderboardCache // optional
	loc          *time.Location
}

// NewGetWeeklyLeaderboardHandler creates a new GetWeeklyLeaderboardHandler.
// cache may be nil to disable caching.
func NewGetWeeklyLeaderboardHandler(
	userRepo user.Repository,
	sessionRepo session.Repository,
	ensembleRepo ensemble.Repository,
	cache LeaderboardCache,
	loc *time.Location,
) *GetWeeklyLeaderboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &GetWeeklyLeaderboardHandler{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		ensembleRepo: ensembleRepo,
		cache:        cache,
		loc:          loc,
	}
}

// Handle builds (or serves from cache) the weekly leaderboard.
func (h *GetWeeklyLeaderboardHandler) Handle(ctx context.Context, q GetWeeklyLeaderboardQuery) (*ensemble.Leaderboard, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_weekly_leaderboard: %w", err)
	}

	at := q.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	week := timeutil.CurrentWeek(at, h.loc)

	if h.cache != nil {
		if board, err := h.cache.Get(ctx, q.EnsembleID, week.Start); err == nil && board != nil {
			return board, nil
		}
	}

	board, err := h.build(ctx, q.EnsembleID, week)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, board, leaderboardCacheTTL)
	}
	return board, nil
}

// Rebuild recomputes the board bypassing the cache and stores the fresh
// result. The scheduler calls this periodically.
func (h *GetWeeklyLeaderboardHandler) Rebuild(ctx context.Context, ensembleID string, at time.Time) (*ensemble.Leaderboard, error) {
	week := timeutil.CurrentWeek(at, h.loc)
	board, err := h.build(ctx, ensembleID, week)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		_ = h.cache.Set(ctx, board, leaderboardCacheTTL)
	}
	return board, nil
}

func (h *GetWeeklyLeaderboardHandler) build(ctx context.Context, ensembleID string, week timeutil.WeekWindow) (*ensemble.Leaderboard, error) {
	if _, err := h.ensembleRepo.GetByID(ctx, ensembleID); err != nil {
		return nil, fmt.Errorf("get_weekly_leaderboard: %w", err)
	}

	members, err := h.userRepo.ListByEnsemble(ctx, ensembleID)
	if err != nil {
		return nil, fmt.Errorf("get_weekly_leaderboard: failed to list members: %w", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	// The week end is Sunday 23:59:59.999999999, so the half-open query
	// window closes just after it.
	sums, err := h.sessionRepo.SumBetween(ctx, ids, week.Start, week.End.Add(time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("get_weekly_leaderboard: failed to sum sessions: %w", err)
	}

	rows := make([]ensemble.MemberTotals, len(members))
	for i, m := range members {
		rows[i] = ensemble.MemberTotals{
			UserID:  m.ID,
			Name:    m.Name,
			Section: m.Section,
			Minutes: sums[m.ID].Minutes,
			Points:  sums[m.ID].Points,
		}
	}

	return ensemble.BuildWeekly(ensembleID, week, rows), nil
}
