// Package main is the entry point for the Practice Hub background worker.
//
// The worker runs the periodic jobs that keep the gamification state fresh
// without blocking API requests: rebuilding weekly ensemble leaderboards,
// expiring group challenges past their deadline, and finding practice
// streaks that will break at midnight.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/practicebeats/practice-hub/config"
	"github.com/practicebeats/practice-hub/internal/application/query"
	"github.com/practicebeats/practice-hub/internal/domain/user"
	"github.com/practicebeats/practice-hub/internal/infrastructure/messaging"
	"github.com/practicebeats/practice-hub/internal/infrastructure/persistence/postgres"
	"github.com/practicebeats/practice-hub/internal/infrastructure/persistence/redis"
	"github.com/practicebeats/practice-hub/internal/infrastructure/scheduler"
	"github.com/practicebeats/practice-hub/internal/infrastructure/scheduler/jobs"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting Practice Hub worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL,
		postgres.WithPoolLimits(int32(cfg.Database.MaxOpenConns), int32(cfg.Database.MaxIdleConns)),
		postgres.WithConnLifetimes(cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional, warms the leaderboard cache during rebuilds)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var leaderboardCache *redis.LeaderboardCache

	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, rebuilds will skip cache warming", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REPOSITORIES AND EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	userRepo := postgres.NewUserRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	ensembleRepo := postgres.NewEnsembleRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)

	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log

	// Share events with the API server over Redis Pub/Sub when available,
	// so challenge expirations published here reach its handlers too.
	var eventBus messaging.EventBus
	if redisCache != nil {
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(redisCache.Client()),
			LocalBusConfig: eventBusConfig,
			Logger:         log,
		})
		if err != nil {
			log.Warn("failed to start redis event bus, falling back to in-memory", "error", err)
			eventBus = messaging.NewInMemoryEventBus(eventBusConfig)
		}
	} else {
		eventBus = messaging.NewInMemoryEventBus(eventBusConfig)
	}
	defer func() {
		_ = eventBus.Close()
	}()

	var boardCache query.LeaderboardCache
	if leaderboardCache != nil {
		boardCache = leaderboardCache
	}
	leaderboardQuery := query.NewGetWeeklyLeaderboardHandler(
		userRepo, sessionRepo, ensembleRepo, boardCache, cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. SCHEDULER AND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	schedConfig := scheduler.DefaultSchedulerConfig()
	schedConfig.Logger = log
	schedConfig.Timezone = cfg.App.Location
	sched := scheduler.NewScheduler(schedConfig)

	rebuildJob := jobs.NewRebuildLeaderboardsJob(ensembleRepo, leaderboardQuery, log)
	if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardsInterval)); err != nil {
		return fmt.Errorf("failed to register job %s: %w", rebuildJob.Name(), err)
	}

	expireJob := jobs.NewExpireChallengesJob(challengeRepo, eventBus, cfg.App.Location, log)
	if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireChallengesInterval)); err != nil {
		return fmt.Errorf("failed to register job %s: %w", expireJob.Name(), err)
	}

	if cfg.Features.IsEnabled(config.FeatureNotifyStreakAtRisk, nil) {
		streakCron, err := scheduler.ParseCronExpression(cfg.Scheduler.StreakReminderCron)
		if err != nil {
			return fmt.Errorf("invalid SCHEDULER_STREAK_CRON: %w", err)
		}
		streakJob := jobs.NewDetectStreaksAtRiskJob(
			userRepo,
			&logStreakNotifier{log: log},
			cfg.App.Location,
			cfg.Scheduler.StreakReminderMinimum,
			log,
		)
		if err := sched.Register(streakJob, streakCron); err != nil {
			return fmt.Errorf("failed to register job %s: %w", streakJob.Name(), err)
		}
	} else {
		log.Info("streak reminders disabled by feature flag")
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	for _, info := range sched.ListJobs() {
		log.Info("job scheduled",
			"job", info.Name,
			"schedule", info.Schedule,
			"next_run", info.NextRun.Format(time.RFC3339),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging for the process.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Observability.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.App.Environment == config.EnvProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// ══════════════════════════════════════════════════════════════════════════════
// ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// logStreakNotifier records at-risk streaks in the worker log. Delivery
// channels (email, push) plug in here once one exists.
type logStreakNotifier struct {
	log *slog.Logger
}

// NotifyStreakAtRisk implements jobs.StreakNotifier.
func (n *logStreakNotifier) NotifyStreakAtRisk(_ context.Context, u *user.User) error {
	n.log.Info("practice streak at risk",
		"user_id", u.ID,
		"streak", u.Practice.StreakCount,
	)
	return nil
}
