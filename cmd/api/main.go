// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Taskflow HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire security primitives, repositories and the auth service.
//  7. Start the expired-session sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/taskflow/internal/api"
	"github.com/taibuivan/taskflow/internal/platform/config"
	"github.com/taibuivan/taskflow/internal/platform/constants"
	"github.com/taibuivan/taskflow/internal/platform/mail"
	"github.com/taibuivan/taskflow/internal/platform/metrics"
	"github.com/taibuivan/taskflow/internal/platform/middleware"
	"github.com/taibuivan/taskflow/internal/platform/migration"
	pgstore "github.com/taibuivan/taskflow/internal/platform/postgres"
	redisstore "github.com/taibuivan/taskflow/internal/platform/redis"
	"github.com/taibuivan/taskflow/internal/platform/sec"
	"github.com/taibuivan/taskflow/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("reset_token_exposed", cfg.ResetTokenExposed()),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("postgres_pool_closing")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("redis_client_closing")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Auth Service ───────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer)
	must(log, err, "initialize token service")

	hasher, err := sec.NewPasswordHasher(cfg.BcryptCost)
	must(log, err, "initialize password hasher")

	var (
		registry *metrics.Metrics
		recorder middleware.HTTPRecorder
		exporter http.Handler
	)
	if cfg.MetricsEnabled {
		promRegistry := metrics.NewRegistry()
		registry = metrics.New(promRegistry)
		recorder = registry
		exporter = metrics.Handler(promRegistry)
	}

	sessionRepository := auth.NewSessionRepository(pool)
	authService := auth.NewService(auth.Dependencies{
		Users:       auth.NewUserRepository(pool),
		Sessions:    sessionRepository,
		Hasher:      hasher,
		Tokens:      tokens,
		Mailer:      mail.NewMailer(cfg.FrontendURL, log, mail.WithLinkLogging(cfg.MailLinksLogged())),
		ResetLedger: auth.NewResetTokenLedger(rdb),
		Metrics:     registry,
		Logger:      log,
	}, auth.Policy{
		AccessTokenTTL:       cfg.AccessTokenTTL(),
		RememberTokenTTL:     cfg.RememberTokenTTL(),
		VerificationTokenTTL: auth.VerificationTokenTTL,
		ResetTokenTTL:        auth.ResetTokenTTL,
	})
	authHandler := auth.NewHandler(authService, auth.HandlerOptions{
		SecureCookies:    !cfg.IsDevelopment(),
		ExposeResetToken: cfg.ResetTokenExposed(),
	})

	// ── 7. Background Jobs ────────────────────────────────────────────────
	jobsCtx, stopJobs := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		auth.NewSweeper(sessionRepository, cfg.SessionSweepInterval, log, registry).Run(jobsCtx)
	}()

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func(ctx context.Context) error {
			return pgstore.Ping(ctx, pool)
		},
		CheckCache: func(ctx context.Context) error {
			return redisstore.Ping(ctx, rdb)
		},
	}, log)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   exporter,
		Auth:      authHandler,
	}

	server := api.NewServer(cfg, log, authService, recorder, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	exitCode := 0
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
		exitCode = 1
	}

	stopJobs()
	<-sweeperDone

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		exitCode = 1
	}

	log.Info("server_stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// newLogger builds the JSON logger with the global app attribute.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
