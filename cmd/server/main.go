// Package main is the entrypoint for the autoapply engine: scheduler plus control API.
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

	"github.com/jobsuitex/autoapply/internal/ai"
	"github.com/jobsuitex/autoapply/internal/api"
	"github.com/jobsuitex/autoapply/internal/api/handler"
	mw "github.com/jobsuitex/autoapply/internal/api/middleware"
	"github.com/jobsuitex/autoapply/internal/api/response"
	"github.com/jobsuitex/autoapply/internal/apply"
	"github.com/jobsuitex/autoapply/internal/automation"
	"github.com/jobsuitex/autoapply/internal/browser"
	"github.com/jobsuitex/autoapply/internal/cache"
	"github.com/jobsuitex/autoapply/internal/config"
	"github.com/jobsuitex/autoapply/internal/notify"
	"github.com/jobsuitex/autoapply/internal/portal"
	"github.com/jobsuitex/autoapply/internal/portal/naukri"
	"github.com/jobsuitex/autoapply/internal/scheduler"
	"github.com/jobsuitex/autoapply/internal/secret"
	"github.com/jobsuitex/autoapply/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// A missing .env is normal in containers; the environment is authoritative.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	aiProvider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	oracle := ai.NewOracle(aiProvider, cfg.AI.InferenceTimeout)
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 6. Browser pool and credential decryption
	pages := browser.NewPool(cfg.Browser)
	defer pages.Close()

	box, err := secret.NewBox(cfg.Security.CredentialKey)
	if err != nil {
		return fmt.Errorf("create credential box: %w", err)
	}

	// 7. Portals and the application machine
	portals := portal.NewRegistry(naukri.New(naukri.Options{
		SortBy: cfg.Automation.SortBy,
		Settle: cfg.Automation.SettleDelay,
	}))

	policy, err := apply.ParseMatchPolicy(cfg.Automation.AnswerMatch)
	if err != nil {
		return fmt.Errorf("parse answer match: %w", err)
	}
	machine := apply.NewMachine(nil, policy, cfg.Automation.ChatMaxTurns, cfg.Automation.SettleDelay)

	// 8. Notifications
	dispatcher := notify.NewDispatcher(cfg.Notify.Timeout,
		notify.NewEmailChannel(cfg.Notify.SMTP),
		notify.NewWebhookChannel(nil),
		notify.NewRedisChannel(redisCache),
	)
	defer dispatcher.Wait()

	// 9. Engine and scheduler
	pgStore := store.NewPostgresStore(pool)

	engine := automation.New(automation.Dependencies{
		Portals:        portals,
		Credentials:    pgStore,
		Outcomes:       pgStore,
		Pages:          pages,
		Authenticator:  portal.NewAuthenticator(redisCache, box, cfg.Redis.SessionTTL, cfg.Browser.RetryBackoff),
		Oracle:         oracle,
		Machine:        machine,
		Notifier:       dispatcher,
		Personas:       pgStore,
		DefaultTargets: notify.DefaultTargets(cfg.Notify),
		MaxPages:       cfg.Automation.MaxPages,
		RetryBackoff:   cfg.Browser.RetryBackoff,
	})

	sched := scheduler.New(pgStore, engine, cfg.Scheduler.TickSpec)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started", "tick", cfg.Scheduler.TickSpec, "portals", portals.Names())

	// 10. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Security.APIKeyHash),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Security.RequestsPerMin),

		HealthHandler:         healthHandler(pgStore, redisCache),
		ListSchedulesHandler:  handler.NewListSchedulesHandler(sched),
		PutScheduleHandler:    handler.NewPutScheduleHandler(sched, pgStore),
		DeleteScheduleHandler: handler.NewDeleteScheduleHandler(sched, pgStore),
		ListOutcomesHandler:   handler.NewListOutcomesHandler(pgStore),
	}
	if cfg.Security.APIKeyHash == "" {
		slog.Warn("API_KEY_HASH is not set; control API will reject every request")
	}

	router := api.NewRouter(deps)

	// 11. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Deferred calls stop the scheduler, drain notifications, then close
	// the browser, cache and pool in that order.
	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
