package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/ensemble"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Stores built weekly leaderboards as JSON blobs keyed by ensemble and the
// Monday of the week. A short TTL keeps mid-week sessions visible without
// rebuilding the board on every request.
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache implements query.LeaderboardCache on top of Cache.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Get returns the cached board for an ensemble week, or (nil, nil) on a miss.
func (lc *LeaderboardCache) Get(ctx context.Context, ensembleID string, weekStart time.Time) (*ensemble.Leaderboard, error) {
	var board ensemble.Leaderboard
	err := lc.cache.Get(ctx, LeaderboardKey(ensembleID, weekStart), &board)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("leaderboard cache get: %w", err)
	}

	return &board, nil
}

// Set stores a built board under its ensemble and week.
func (lc *LeaderboardCache) Set(ctx context.Context, board *ensemble.Leaderboard, ttl time.Duration) error {
	if board == nil {
		return ErrCacheNilValue
	}
	if ttl <= 0 {
		ttl = TTLLeaderboardCache
	}

	key := LeaderboardKey(board.EnsembleID, board.Week.Start)
	if err := lc.cache.Set(ctx, key, board, ttl); err != nil {
		return fmt.Errorf("leaderboard cache set: %w", err)
	}

	return nil
}

// Invalidate drops the cached board for an ensemble week.
func (lc *LeaderboardCache) Invalidate(ctx context.Context, ensembleID string, weekStart time.Time) error {
	if err := lc.cache.Delete(ctx, LeaderboardKey(ensembleID, weekStart)); err != nil {
		return fmt.Errorf("leaderboard cache invalidate: %w", err)
	}

	return nil
}
