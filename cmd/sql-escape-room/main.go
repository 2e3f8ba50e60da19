package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/sql-escape-room/internal/api"
	"github.com/terra-clan/sql-escape-room/internal/catalog"
	"github.com/terra-clan/sql-escape-room/internal/config"
	"github.com/terra-clan/sql-escape-room/internal/sandbox"
	"github.com/terra-clan/sql-escape-room/internal/scores"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting sql-escape-room",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Load the level catalog; the game cannot run without it
	levels := catalog.New()
	if err := levels.LoadFromDir(cfg.Levels.Dir); err != nil {
		slog.Error("failed to load level catalog", "dir", cfg.Levels.Dir, "error", err)
		os.Exit(1)
	}
	slog.Info("level catalog ready", "levels", levels.Total())

	// Open the shared sandbox engine
	provisioner, err := sandbox.NewProvisioner()
	if err != nil {
		slog.Error("failed to open sandbox engine", "error", err)
		os.Exit(1)
	}

	evaluator := sandbox.NewEvaluator(levels, provisioner, cfg.Sandbox.QueryTimeout)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Score sinks degrade gracefully: an unreachable store is skipped at
	// startup rather than failing the game.
	registry := scores.NewRegistry()

	redisSink, err := scores.NewRedisSink(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("redis leaderboard unavailable", "address", cfg.Redis.Address, "error", err)
	} else {
		registry.Register("redis", redisSink)
	}

	postgresSink, err := scores.NewPostgresSink(initCtx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		slog.Warn("postgres score store unavailable", "error", err)
	} else {
		if err := postgresSink.Migrate(initCtx, cfg.Database.MigrationsDir); err != nil {
			slog.Error("failed to run migrations", "dir", cfg.Database.MigrationsDir, "error", err)
			os.Exit(1)
		}
		registry.Register("postgres", postgresSink)
	}

	scoreService := scores.NewService(registry, cfg.Scores.FlushInterval, cfg.Scores.RetryQueueCap)

	// Create context with cancellation for background workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scoreService.Start(ctx)

	// Live scoreboard feed
	hub := api.NewHub()

	// Setup HTTP server
	server := api.NewServer(cfg, levels, evaluator, provisioner, scoreService, hub)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	hub.Close()

	if err := provisioner.Close(); err != nil {
		slog.Error("sandbox engine close error", "error", err)
	}

	if postgresSink != nil {
		postgresSink.Close()
	}
	if redisSink != nil {
		if err := redisSink.Close(); err != nil {
			slog.Warn("redis close error", "error", err)
		}
	}

	slog.Info("sql-escape-room stopped")
}
