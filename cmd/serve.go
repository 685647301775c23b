package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/koopa0/selldesk/api"
	"github.com/koopa0/selldesk/internal/app"
	"github.com/koopa0/selldesk/internal/config"
	"github.com/koopa0/selldesk/internal/index"
)

// runServe starts the HTTP API server and the indexing worker pool.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting selldesk", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	pool := index.NewPool(ctx, a.Indexer, cfg.IndexWorkers, cfg.IndexWorkers*4,
		logger.With("component", "worker-pool"))
	defer func() {
		if closeErr := pool.Close(); closeErr != nil {
			logger.Warn("worker pool shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(a.Pool, pool, a.Tracker, a.Enricher, logger.With("component", "api"))
	return srv.Run(ctx, cfg.ListenAddr)
}
