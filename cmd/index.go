package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/koopa0/selldesk/internal/app"
	"github.com/koopa0/selldesk/internal/config"
	"github.com/koopa0/selldesk/internal/index"
)

// runIndex runs one indexing run synchronously and prints the structured
// result as JSON. Useful for operations and for the scheduled full-rebuild
// trigger (cron calling `selldesk index --cabinet N --full`).
func runIndex(args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	cabinetID := fs.Int64("cabinet", 0, "cabinet id to index (required)")
	full := fs.Bool("full", false, "full rebuild: re-extract everything and purge stale chunks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cabinetID <= 0 {
		return fmt.Errorf("--cabinet is required and must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Indexer.Run(ctx, index.Request{
		CabinetID:   *cabinetID,
		FullRebuild: *full,
	})
	if errors.Is(err, index.ErrAlreadyRunning) {
		fmt.Println(`{"status":"already_running"}`)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(result); encErr != nil {
		return fmt.Errorf("encoding result: %w", encErr)
	}
	if err != nil {
		return fmt.Errorf("indexing run failed: %w", err)
	}
	return nil
}
