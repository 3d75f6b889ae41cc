package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/challenge"
	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE CHALLENGES JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireChallengesJob moves active group challenges whose deadline has
// passed to the expired state. Completions recorded before the deadline
// keep their awarded points; the job only closes the window.
type ExpireChallengesJob struct {
	challengeRepo challenge.Repository
	eventBus      shared.EventBus
	loc           *time.Location
	logger        *slog.Logger
}

// NewExpireChallengesJob creates a new expiry job.
func NewExpireChallengesJob(
	challengeRepo challenge.Repository,
	eventBus shared.EventBus,
	loc *time.Location,
	logger *slog.Logger,
) *ExpireChallengesJob {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExpireChallengesJob{
		challengeRepo: challengeRepo,
		eventBus:      eventBus,
		loc:           loc,
		logger:        logger,
	}
}

// Name implements scheduler.Job.
func (j *ExpireChallengesJob) Name() string {
	return "expire_challenges"
}

// Description implements scheduler.Job.
func (j *ExpireChallengesJob) Description() string {
	return "Expires active group challenges whose end date has passed"
}

// Run implements scheduler.Job.
func (j *ExpireChallengesJob) Run(ctx context.Context) error {
	today := time.Now().In(j.loc)

	stale, err := j.challengeRepo.ListActivePastDeadline(ctx, today)
	if err != nil {
		return fmt.Errorf("expire_challenges: list stale challenges: %w", err)
	}

	var expired, failed int
	for _, c := range stale {
		if err := c.Expire(); err != nil {
			// Raced with another worker; skip.
			j.logger.Debug("challenge not expirable", "challenge_id", c.ID, "status", c.Status)
			continue
		}

		if err := j.challengeRepo.Update(ctx, c); err != nil {
			failed++
			j.logger.Error("failed to expire challenge", "challenge_id", c.ID, "error", err)
			continue
		}
		expired++

		if j.eventBus != nil {
			_ = j.eventBus.Publish(shared.NewBaseEvent(shared.EventChallengeExpired, c.ID))
		}
	}

	if expired > 0 || failed > 0 {
		j.logger.Info("challenges expired", "expired", expired, "failed", failed)
	}

	if failed > 0 && expired == 0 {
		return fmt.Errorf("expire_challenges: all %d updates failed", failed)
	}
	return nil
}
