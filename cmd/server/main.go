package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examly/session-engine/internal/auth"
	"github.com/examly/session-engine/internal/config"
	"github.com/examly/session-engine/internal/database"
	"github.com/examly/session-engine/internal/handler"
	"github.com/examly/session-engine/internal/integrity"
	"github.com/examly/session-engine/internal/logger"
	"github.com/examly/session-engine/internal/router"
	"github.com/examly/session-engine/internal/session"
	"github.com/examly/session-engine/internal/store"
	"github.com/examly/session-engine/internal/validator"
	"github.com/examly/session-engine/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Session Engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (official catalogue) ────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Open SQLite (community practice sets) ─────────────────────────
	communityDB, err := database.NewCommunityDB(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open community database")
	}
	defer communityDB.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Stores ─────────────────────────────────────────────
	officialStore := store.NewOfficialStore(pool)
	communityStore := store.NewCommunityStore(communityDB)

	// ─── Initialize Engine ─────────────────────────────────────────────
	loader := session.NewLoader(officialStore, communityStore, log)
	attemptQueue := worker.NewAttemptQueue(rdb)
	violationQueue := worker.NewViolationQueue(rdb)
	dispatcher := session.NewDispatcher(attemptQueue, communityStore, log)
	monitor := integrity.NewRedisMonitor(rdb, log)

	engine := session.NewEngine(loader, dispatcher, monitor, violationQueue, session.EngineOptions{
		FreePreviewLimit: cfg.FreePreviewLimit,
		ClockTick:        cfg.ClockTick,
	}, log)

	tokens := auth.NewTokenService(cfg)

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(engine, log),
		WS:      handler.NewWSHandler(engine, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	attemptWorker := worker.NewAttemptWorker(officialStore, rdb, log)
	violationWorker := worker.NewViolationWorker(officialStore, rdb, log)

	go attemptWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokens, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. End live sessions so monitoring handles are released.
	engine.Shutdown(shutdownCtx)

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
