package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadyRunning indicates an indexing run is already in progress
	// for the cabinet. Not a failure: the caller owns retry policy.
	ErrAlreadyRunning = errors.New("indexing already in progress")

	// ErrStatusNotFound indicates the cabinet has never been indexed.
	ErrStatusNotFound = errors.New("index status not found")
)

// Tracker maintains the per-cabinet indexing state machine in
// rag_index_status.
//
// The in_progress guard is a conditional update at the database, not an
// in-process lock, so it holds across multiple worker processes. The guard
// is per cabinet: different cabinets index in parallel freely.
type Tracker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewTracker creates a Tracker.
func NewTracker(pool *pgxpool.Pool, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{pool: pool, logger: logger}
}

// TryStart atomically claims the cabinet for an indexing run. If a run is
// already in_progress it returns ErrAlreadyRunning and leaves the existing
// run untouched.
func (t *Tracker) TryStart(ctx context.Context, cabinetID int64) error {
	tag, err := t.pool.Exec(ctx, `
		INSERT INTO rag_index_status (cabinet_id, indexing_status, updated_at)
		VALUES ($1, 'in_progress', now())
		ON CONFLICT (cabinet_id) DO UPDATE
		SET indexing_status = 'in_progress', updated_at = now()
		WHERE rag_index_status.indexing_status <> 'in_progress'`,
		cabinetID)
	if err != nil {
		return fmt.Errorf("claiming index status for cabinet %d: %w", cabinetID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cabinet %d: %w", cabinetID, ErrAlreadyRunning)
	}
	return nil
}

// Complete marks the run successful, stamps the timestamp matching the mode,
// and records the current chunk count.
func (t *Tracker) Complete(ctx context.Context, cabinetID int64, mode Mode, totalChunks int64) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE rag_index_status
		SET indexing_status = 'completed',
		    total_chunks = $2,
		    last_indexed_at = CASE WHEN $3 THEN now() ELSE last_indexed_at END,
		    last_incremental_at = CASE WHEN $3 THEN last_incremental_at ELSE now() END,
		    updated_at = now()
		WHERE cabinet_id = $1`,
		cabinetID, totalChunks, mode == ModeFullRebuild)
	if err != nil {
		return fmt.Errorf("completing index status for cabinet %d: %w", cabinetID, err)
	}
	return nil
}

// Fail marks the run failed. The last-success timestamps are deliberately
// left untouched: a failed run must not claim progress it didn't make.
func (t *Tracker) Fail(ctx context.Context, cabinetID int64) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE rag_index_status
		SET indexing_status = 'failed', updated_at = now()
		WHERE cabinet_id = $1`,
		cabinetID)
	if err != nil {
		return fmt.Errorf("failing index status for cabinet %d: %w", cabinetID, err)
	}
	return nil
}

// Get returns the cabinet's indexing state, or ErrStatusNotFound if indexing
// has never been triggered for it.
func (t *Tracker) Get(ctx context.Context, cabinetID int64) (*StatusRecord, error) {
	var rec StatusRecord
	err := t.pool.QueryRow(ctx, `
		SELECT cabinet_id, indexing_status, last_indexed_at, last_incremental_at, total_chunks
		FROM rag_index_status
		WHERE cabinet_id = $1`, cabinetID).
		Scan(&rec.CabinetID, &rec.IndexingStatus, &rec.LastIndexedAt, &rec.LastIncrementalAt, &rec.TotalChunks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cabinet %d: %w", cabinetID, ErrStatusNotFound)
		}
		return nil, fmt.Errorf("querying index status for cabinet %d: %w", cabinetID, err)
	}
	return &rec, nil
}
