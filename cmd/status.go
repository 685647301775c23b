package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/koopa0/selldesk/internal/config"
	"github.com/koopa0/selldesk/internal/database"
	"github.com/koopa0/selldesk/internal/index"
)

// runStatus prints a cabinet's indexing state as JSON.
// Connects straight to the database; no embedder needed.
func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	cabinetID := fs.Int64("cabinet", 0, "cabinet id (required)")
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, cleanup, err := database.NewPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	tracker := index.NewTracker(pool, nil)
	rec, err := tracker.Get(ctx, *cabinetID)
	if err != nil {
		if errors.Is(err, index.ErrStatusNotFound) {
			fmt.Printf("cabinet %d has never been indexed\n", *cabinetID)
			return nil
		}
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
