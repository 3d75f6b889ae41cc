// Package jobs contains implementations of scheduled jobs for Practice Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/practicebeats/practice-hub/internal/application/query"
	"github.com/practicebeats/practice-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD LEADERBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// EnsembleLister enumerates the ensembles whose boards need rebuilding.
type EnsembleLister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// RebuildLeaderboardsJob recomputes every ensemble's weekly leaderboard and
// refreshes the cache, so members see current standings without paying the
// build cost on each request.
type RebuildLeaderboardsJob struct {
	ensembles   EnsembleLister
	leaderboard *query.GetWeeklyLeaderboardHandler
	retrier     *retry.Retrier
	logger      *slog.Logger
	timeout     time.Duration

	lastStats atomic.Value // *RebuildStats
}

// RebuildStats contains statistics from a rebuild run.
type RebuildStats struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	EnsemblesTotal int
	EnsemblesBuilt int
	Failures       int
}

// NewRebuildLeaderboardsJob creates a new rebuild job.
func NewRebuildLeaderboardsJob(
	ensembles EnsembleLister,
	leaderboard *query.GetWeeklyLeaderboardHandler,
	logger *slog.Logger,
) *RebuildLeaderboardsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RebuildLeaderboardsJob{
		ensembles:   ensembles,
		leaderboard: leaderboard,
		retrier:     retry.DatabaseRetrier(),
		logger:      logger,
		timeout:     5 * time.Minute,
	}
}

// Name implements scheduler.Job.
func (j *RebuildLeaderboardsJob) Name() string {
	return "rebuild_leaderboards"
}

// Description implements scheduler.Job.
func (j *RebuildLeaderboardsJob) Description() string {
	return "Rebuilds weekly practice leaderboards for all ensembles"
}

// Run implements scheduler.Job.
func (j *RebuildLeaderboardsJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	stats := &RebuildStats{StartedAt: time.Now().UTC()}
	defer func() {
		stats.CompletedAt = time.Now().UTC()
		stats.Duration = stats.CompletedAt.Sub(stats.StartedAt)
		j.lastStats.Store(stats)
	}()

	ids, err := j.ensembles.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("rebuild_leaderboards: list ensembles: %w", err)
	}
	stats.EnsemblesTotal = len(ids)

	now := time.Now().UTC()
	for _, id := range ids {
		ensembleID := id
		err := j.retrier.Do(ctx, func(ctx context.Context) error {
			_, err := j.leaderboard.Rebuild(ctx, ensembleID, now)
			return err
		})
		if err != nil {
			stats.Failures++
			j.logger.Error("leaderboard rebuild failed",
				"ensemble_id", ensembleID,
				"error", err,
			)
			continue
		}
		stats.EnsemblesBuilt++
	}

	j.logger.Info("leaderboards rebuilt",
		"total", stats.EnsemblesTotal,
		"built", stats.EnsemblesBuilt,
		"failures", stats.Failures,
	)

	if stats.Failures > 0 && stats.EnsemblesBuilt == 0 {
		return fmt.Errorf("rebuild_leaderboards: all %d rebuilds failed", stats.Failures)
	}
	return nil
}

// LastStats returns statistics from the most recent run, or nil before the
// first run.
func (j *RebuildLeaderboardsJob) LastStats() *RebuildStats {
	if v := j.lastStats.Load(); v != nil {
		return v.(*RebuildStats)
	}
	return nil
}
