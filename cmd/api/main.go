package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"closer_scheduling_backend/internal/audit"
	"closer_scheduling_backend/internal/events"
	apphttp "closer_scheduling_backend/internal/http"
	"closer_scheduling_backend/internal/http/router"
	"closer_scheduling_backend/internal/scheduler"
	"closer_scheduling_backend/internal/scheduling"
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/db"
	"closer_scheduling_backend/platform/idempotency"
	"closer_scheduling_backend/platform/logger"
	"closer_scheduling_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	dispatcher, closeDispatcher := initDispatcher(cfg, pool, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Audit recorder subscribes to booking events (not HTTP-facing)
	audit.NewRecorder(dispatcher, cfg.GetReminderLeadTime(), log).RegisterHandlers(eventBus)

	schedulingModule, err := scheduling.NewModule(pool, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduling module", "error", err)
		panic("failed to initialize scheduling module: " + err.Error())
	}

	checks := []apphttp.ReadinessCheck{{Name: "database", Checker: pool}}
	if store, closeStore := initIdempotencyStore(cfg, log); store != nil {
		defer closeStore()
		schedulingModule.SetIdempotencyStore(store)
		checks = append(checks, apphttp.ReadinessCheck{Name: "redis", Checker: store})
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Checks:   checks,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			schedulingModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, waiting for pending event handlers")
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDispatcher returns the asynq client when Redis is configured and
// otherwise writes audit entries in-process.
func initDispatcher(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) (audit.Dispatcher, func()) {
	direct := audit.NewDirectDispatcher(audit.NewRepository(pool), log)
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; audit written in-process and booking reminders disabled")
		return direct, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return direct, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initIdempotencyStore(cfg config.IdempotencyConfig, log *logger.Logger) (*idempotency.RedisStore, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; idempotency keys checked against the database only")
		return nil, nil
	}

	store, err := idempotency.Connect(cfg)
	if err != nil {
		log.Error("failed to initialize idempotency store", "error", err)
		return nil, nil
	}

	return store, func() {
		_ = store.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
