package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DETECT STREAKS AT RISK JOB
// ══════════════════════════════════════════════════════════════════════════════

// StreakNotifier delivers the at-risk reminder. Implementations decide the
// channel (email, push); a nil notifier means the job only logs.
type StreakNotifier interface {
	NotifyStreakAtRisk(ctx context.Context, u *user.User) error
}

// DetectStreaksAtRiskJob finds users whose practice streak will break at
// midnight because they have not practiced today, and reminds them.
// Intended to run in the evening.
type DetectStreaksAtRiskJob struct {
	userRepo  user.Repository
	notifier  StreakNotifier
	loc       *time.Location
	minStreak int
	logger    *slog.Logger
}

// NewDetectStreaksAtRiskJob creates a new detection job. minStreak filters
// out streaks too short to be worth a reminder.
func NewDetectStreaksAtRiskJob(
	userRepo user.Repository,
	notifier StreakNotifier,
	loc *time.Location,
	minStreak int,
	logger *slog.Logger,
) *DetectStreaksAtRiskJob {
	if loc == nil {
		loc = time.UTC
	}
	if minStreak <= 0 {
		minStreak = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DetectStreaksAtRiskJob{
		userRepo:  userRepo,
		notifier:  notifier,
		loc:       loc,
		minStreak: minStreak,
		logger:    logger,
	}
}

// Name implements scheduler.Job.
func (j *DetectStreaksAtRiskJob) Name() string {
	return "detect_streaks_at_risk"
}

// Description implements scheduler.Job.
func (j *DetectStreaksAtRiskJob) Description() string {
	return "Reminds users whose practice streak breaks at midnight"
}

// Run implements scheduler.Job.
func (j *DetectStreaksAtRiskJob) Run(ctx context.Context) error {
	users, err := j.userRepo.ListWithActiveStreaks(ctx, j.minStreak)
	if err != nil {
		return fmt.Errorf("detect_streaks_at_risk: list users: %w", err)
	}

	now := time.Now().In(j.loc)

	var atRisk, notified int
	for _, u := range users {
		if !j.streakAtRisk(u, now) {
			continue
		}
		atRisk++

		if j.notifier == nil {
			j.logger.Info("streak at risk",
				"user_id", u.ID,
				"streak", u.Practice.StreakCount,
			)
			continue
		}

		if err := j.notifier.NotifyStreakAtRisk(ctx, u); err != nil {
			j.logger.Error("streak reminder failed", "user_id", u.ID, "error", err)
			continue
		}
		notified++
	}

	if atRisk > 0 {
		j.logger.Info("streak reminders processed", "at_risk", atRisk, "notified", notified)
	}

	return nil
}

// streakAtRisk reports whether the user practiced yesterday but not yet
// today. A last practice before yesterday means the streak is already gone;
// today means it is safe.
func (j *DetectStreaksAtRiskJob) streakAtRisk(u *user.User, now time.Time) bool {
	last := u.Practice.LastPracticeDate
	if last == nil {
		return false
	}
	if timeutil.SameDay(*last, now, j.loc) {
		return false
	}
	return timeutil.IsYesterday(*last, now, j.loc)
}
