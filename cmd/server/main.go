// Package main is the entry point for the Practice Hub API server.
//
// The server exposes the REST API: registration and login, practice session
// logging, task readiness, weekly ensemble leaderboards, group challenges,
// and the teacher dashboard endpoints.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, cache, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/practicebeats/practice-hub/config"

	// Application layer
	"github.com/practicebeats/practice-hub/internal/application/command"
	"github.com/practicebeats/practice-hub/internal/application/query"

	// Domain layer
	"github.com/practicebeats/practice-hub/internal/domain/shared"
	"github.com/practicebeats/practice-hub/internal/domain/user"

	// Infrastructure layer
	"github.com/practicebeats/practice-hub/internal/infrastructure/messaging"
	"github.com/practicebeats/practice-hub/internal/infrastructure/persistence/postgres"
	"github.com/practicebeats/practice-hub/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/practicebeats/practice-hub/internal/interface/http"
	"github.com/practicebeats/practice-hub/internal/interface/http/handlers"

	// Packages
	"github.com/practicebeats/practice-hub/pkg/logger"
	"github.com/practicebeats/practice-hub/pkg/timeutil"
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

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Practice Hub API",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL,
		postgres.WithPoolLimits(int32(cfg.Database.MaxOpenConns), int32(cfg.Database.MaxIdleConns)),
		postgres.WithConnLifetimes(cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional, leaderboard caching)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var leaderboardCache *redis.LeaderboardCache

	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureLeaderboardCaching, nil) {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	taskRepo := postgres.NewTaskRepository(dbConn)
	badgeRepo := postgres.NewBadgeRepository(dbConn)
	ensembleRepo := postgres.NewEnsembleRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)
	noteRepo := postgres.NewNoteRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log

	// With Redis available, events fan out over Pub/Sub so the worker sees
	// them too. Without it, delivery stays in-process.
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
		log.Info("closing event bus...")
		if m := eventBus.Metrics(); m != nil {
			snap := m.Snapshot()
			log.Info("event bus totals",
				"published", snap.TotalPublished,
				"handled", snap.TotalHandled,
				"failed", snap.TotalFailed,
			)
		}
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		EventBus: eventBus,
		Logger:   log,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	if leaderboardCache != nil {
		invalidate := newLeaderboardInvalidator(userRepo, leaderboardCache, cfg.App.Location, log)
		for _, et := range []shared.EventType{
			shared.EventSessionLogged,
			shared.EventSessionUpdated,
			shared.EventSessionDeleted,
		} {
			if err := dispatcher.Register(et, invalidate); err != nil {
				return fmt.Errorf("failed to register event handler: %w", err)
			}
		}
	}

	levelUps := messaging.NewHandlerFunc("announce_level_up", func(event shared.Event) error {
		log.Info("user leveled up", "user_id", event.AggregateID(), "payload", event.Payload())
		return nil
	})
	if err := dispatcher.Register(shared.EventLevelUp, levelUps); err != nil {
		return fmt.Errorf("failed to register event handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	loc := cfg.App.Location
	codes := command.NewCodeGenerator()

	registerUserCmd := command.NewRegisterUserHandler(userRepo, codes, eventBus)
	authenticateCmd := command.NewAuthenticateHandler(userRepo)
	logSessionCmd := command.NewLogSessionHandler(userRepo, sessionRepo, taskRepo, badgeRepo, eventBus, loc)
	updateRatingsCmd := command.NewUpdateSessionRatingsHandler(userRepo, sessionRepo, eventBus)
	deleteSessionCmd := command.NewDeleteSessionHandler(userRepo, sessionRepo, taskRepo, eventBus)
	createTaskCmd := command.NewCreateTaskHandler(userRepo, taskRepo, eventBus)
	updateTaskCmd := command.NewUpdateTaskHandler(taskRepo, sessionRepo)
	markTaskReadyCmd := command.NewMarkTaskReadyHandler(taskRepo)
	deleteTaskCmd := command.NewDeleteTaskHandler(taskRepo)
	createEnsembleCmd := command.NewCreateEnsembleHandler(userRepo, ensembleRepo, codes, eventBus)
	joinEnsembleCmd := command.NewJoinEnsembleHandler(userRepo, ensembleRepo, eventBus)
	scheduleRehearsalCmd := command.NewScheduleRehearsalHandler(userRepo, ensembleRepo)
	updateRehearsalCmd := command.NewUpdateRehearsalHandler(userRepo, ensembleRepo)
	cancelRehearsalCmd := command.NewCancelRehearsalHandler(userRepo, ensembleRepo)
	createChallengeCmd := command.NewCreateChallengeHandler(userRepo, challengeRepo)
	completeChallengeCmd := command.NewCompleteChallengeHandler(userRepo, sessionRepo, challengeRepo, eventBus, loc)
	linkTeacherCmd := command.NewLinkTeacherHandler(userRepo)
	setSharingCmd := command.NewSetPracticeSharingHandler(userRepo)
	addNoteCmd := command.NewAddNoteHandler(userRepo, noteRepo)
	markNoteReadCmd := command.NewMarkNoteReadHandler(noteRepo)

	// redis.LeaderboardCache satisfies query.LeaderboardCache; a nil interface
	// value disables caching inside the handler.
	var boardCache query.LeaderboardCache
	if leaderboardCache != nil {
		boardCache = leaderboardCache
	}

	leaderboardQuery := query.NewGetWeeklyLeaderboardHandler(userRepo, sessionRepo, ensembleRepo, boardCache, loc)
	userStatsQuery := query.NewGetUserStatsHandler(userRepo, sessionRepo, badgeRepo, loc)
	practiceLogQuery := query.NewGetPracticeLogHandler(sessionRepo)
	listTasksQuery := query.NewListTasksHandler(taskRepo, sessionRepo)
	challengeProgressQuery := query.NewGetChallengeProgressHandler(userRepo, sessionRepo, challengeRepo, loc)
	studentSummaryQuery := query.NewGetStudentSummaryHandler(userRepo, sessionRepo, taskRepo, noteRepo)
	listNotesQuery := query.NewListNotesHandler(noteRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. AUTH AND HEALTH
	// ─────────────────────────────────────────────────────────────────────────
	tokens := handlers.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	httpDeps := httpserver.Dependencies{
		RegisterUser:         registerUserCmd,
		Authenticate:         authenticateCmd,
		LogSession:           logSessionCmd,
		UpdateSessionRatings: updateRatingsCmd,
		DeleteSession:        deleteSessionCmd,
		CreateTask:           createTaskCmd,
		UpdateTask:           updateTaskCmd,
		MarkTaskReady:        markTaskReadyCmd,
		DeleteTask:           deleteTaskCmd,
		CreateEnsemble:       createEnsembleCmd,
		JoinEnsemble:         joinEnsembleCmd,
		ScheduleRehearsal:    scheduleRehearsalCmd,
		UpdateRehearsal:      updateRehearsalCmd,
		CancelRehearsal:      cancelRehearsalCmd,
		CreateChallenge:      createChallengeCmd,
		CompleteChallenge:    completeChallengeCmd,
		LinkTeacher:          linkTeacherCmd,
		SetPracticeSharing:   setSharingCmd,
		AddNote:              addNoteCmd,
		MarkNoteRead:         markNoteReadCmd,

		GetWeeklyLeaderboard: leaderboardQuery,
		GetUserStats:         userStatsQuery,
		GetPracticeLog:       practiceLogQuery,
		ListTasks:            listTasksQuery,
		GetChallengeProgress: challengeProgressQuery,
		GetStudentSummary:    studentSummaryQuery,
		ListNotes:            listNotesQuery,

		Students:      userRepo,
		Rehearsals:    ensembleRepo,
		Tokens:        tokens,
		Features:      cfg.Features,
		Logger:        logger.Default(),
		HealthChecker: healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. START
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("Practice Hub API is running", "http_address", httpServer.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
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
// EVENT HANDLER ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

// newLeaderboardInvalidator drops the cached weekly leaderboard of the
// ensemble the session's owner belongs to. Session changes shift weekly
// minutes, so a stale board would misrank members until the TTL expires.
func newLeaderboardInvalidator(
	userRepo user.Repository,
	cache *redis.LeaderboardCache,
	loc *time.Location,
	log *slog.Logger,
) shared.EventHandler {
	return messaging.NewHandlerFunc("invalidate_leaderboard", func(event shared.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		u, err := userRepo.GetByID(ctx, event.AggregateID())
		if err != nil {
			return fmt.Errorf("load user %s: %w", event.AggregateID(), err)
		}
		if u.EnsembleID == "" {
			return nil
		}

		week := timeutil.CurrentWeek(event.OccurredAt(), loc)
		if err := cache.Invalidate(ctx, u.EnsembleID, week.Start); err != nil {
			log.Warn("leaderboard invalidation failed",
				"ensemble_id", u.EnsembleID,
				"error", err,
			)
		}
		return nil
	})
}
