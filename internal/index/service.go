package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/source"
)

// SnapshotExtractor pulls fresh rows for a cabinet from the source tables.
// Satisfied by *source.Extractor.
type SnapshotExtractor interface {
	Extract(ctx context.Context, cabinetID int64, changed source.ChangedIDs) (*source.Snapshot, error)
}

// EmbeddingGenerator produces one vector per text, order-preserving.
// Satisfied by *embed.Generator.
type EmbeddingGenerator interface {
	Generate(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists chunks and embeddings. Satisfied by *Store.
type ChunkStore interface {
	Hashes(ctx context.Context, cabinetID int64) (map[Key]string, error)
	Apply(ctx context.Context, cabinetID int64, records []Record, valid map[Key]struct{}) (ApplyResult, error)
	Count(ctx context.Context, cabinetID int64) (int64, error)
}

// StatusTracker guards and records per-cabinet indexing state.
// Satisfied by *Tracker.
type StatusTracker interface {
	TryStart(ctx context.Context, cabinetID int64) error
	Complete(ctx context.Context, cabinetID int64, mode Mode, totalChunks int64) error
	Fail(ctx context.Context, cabinetID int64) error
}

// strategy is the per-mode behavior layered over the shared pipeline.
// Both strategies use the same extract/build/filter/embed/write primitives;
// they differ only in what they extract and whether they purge.
type strategy interface {
	mode() Mode
	changedIDs() source.ChangedIDs
	purge() bool
}

// incrementalStrategy indexes the delta (or everything, in fallback mode)
// and never deletes: the delta is partial by definition.
type incrementalStrategy struct {
	changed source.ChangedIDs
}

func (s incrementalStrategy) mode() Mode                    { return ModeIncremental }
func (s incrementalStrategy) changedIDs() source.ChangedIDs { return s.changed }
func (s incrementalStrategy) purge() bool                   { return false }

// fullRebuildStrategy re-extracts everything fresh and purges chunks whose
// source row fell out of the freshness window or disappeared.
type fullRebuildStrategy struct{}

func (fullRebuildStrategy) mode() Mode                    { return ModeFullRebuild }
func (fullRebuildStrategy) changedIDs() source.ChangedIDs { return nil }
func (fullRebuildStrategy) purge() bool                   { return true }

func strategyFor(req Request) strategy {
	if req.FullRebuild {
		return fullRebuildStrategy{}
	}
	return incrementalStrategy{changed: req.ChangedIDs}
}

// Service orchestrates indexing runs.
type Service struct {
	extractor SnapshotExtractor
	embedder  EmbeddingGenerator
	store     ChunkStore
	tracker   StatusTracker
	logger    *slog.Logger
}

// NewService creates the run orchestrator.
func NewService(extractor SnapshotExtractor, embedder EmbeddingGenerator, store ChunkStore, tracker StatusTracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		tracker:   tracker,
		logger:    logger,
	}
}

// Run executes one indexing run for a cabinet.
//
// If the cabinet is already being indexed, Run returns ErrAlreadyRunning
// without starting: the existing run is left untouched and the caller owns
// any retry. Pipeline failures are absorbed into the returned Result
// (Status "error") after the cabinet's status is flipped to failed; the
// error is also returned so callers can log it, but no raw pipeline error
// escapes without an accompanying structured result.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	strat := strategyFor(req)

	if err := s.tracker.TryStart(ctx, req.CabinetID); err != nil {
		return nil, err
	}

	runLogger := s.logger.With(
		"run_id", uuid.NewString(),
		"cabinet_id", req.CabinetID,
		"mode", strat.mode())
	runLogger.Info("indexing run started")

	start := time.Now()
	result, err := s.runPipeline(ctx, req.CabinetID, strat, runLogger)
	if err != nil {
		// The failure mark must land even when ctx cancellation is what
		// killed the run; a cabinet stuck at in_progress can never be
		// re-claimed by TryStart.
		if failErr := s.tracker.Fail(context.WithoutCancel(ctx), req.CabinetID); failErr != nil {
			runLogger.Error("failed to record run failure", "error", failErr)
		}
		runLogger.Error("indexing run failed", "error", err, "duration", time.Since(start))
		return &Result{
			Status:    "error",
			CabinetID: req.CabinetID,
			Mode:      strat.mode(),
			Metrics:   Metrics{ExecutionTime: time.Since(start)},
			Errors:    []string{err.Error()},
		}, err
	}

	result.Metrics.ExecutionTime = time.Since(start)
	runLogger.Info("indexing run completed",
		"total_chunks", result.TotalChunks,
		"new", result.Metrics.New,
		"updated", result.Metrics.Updated,
		"skipped", result.Metrics.Skipped,
		"deleted", result.Metrics.Deleted,
		"duration", result.Metrics.ExecutionTime)
	return result, nil
}

// runPipeline is the shared extract→build→filter→embed→write sequence.
func (s *Service) runPipeline(ctx context.Context, cabinetID int64, strat strategy, logger *slog.Logger) (*Result, error) {
	snap, err := s.extractor.Extract(ctx, cabinetID, strat.changedIDs())
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}

	chunks := chunk.Build(snap)

	prior, err := s.store.Hashes(ctx, cabinetID)
	if err != nil {
		return nil, fmt.Errorf("loading stored hashes: %w", err)
	}

	toEmbed, toSkip := splitByHash(chunks, prior)
	logger.Debug("hash filter applied",
		"total", len(chunks), "to_embed", len(toEmbed), "skipped", len(toSkip))

	// Embed before any write: a retries-exhausted API failure here aborts
	// the run with the store still in its pre-run state.
	texts := make([]string, len(toEmbed))
	for i, rec := range toEmbed {
		texts[i] = rec.Text
	}
	vectors, err := s.embedder.Generate(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding generation: %w", err)
	}
	for i := range toEmbed {
		toEmbed[i].Vector = vectors[i]
	}

	// A full rebuild's snapshot is the complete fresh set, so every chunk
	// built from it (embedded or skipped) is a valid key.
	var valid map[Key]struct{}
	if strat.purge() {
		valid = make(map[Key]struct{}, len(chunks))
		for _, c := range chunks {
			valid[Key{Table: c.SourceTable, SourceID: c.SourceID}] = struct{}{}
		}
	}

	applied, err := s.store.Apply(ctx, cabinetID, toEmbed, valid)
	if err != nil {
		return nil, fmt.Errorf("writing chunks: %w", err)
	}

	total, err := s.store.Count(ctx, cabinetID)
	if err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	// The work is already committed at this point, so the completion mark
	// uses a cancellation-free context as well.
	if err := s.tracker.Complete(context.WithoutCancel(ctx), cabinetID, strat.mode(), total); err != nil {
		return nil, fmt.Errorf("recording completion: %w", err)
	}

	return &Result{
		Status:      "success",
		CabinetID:   cabinetID,
		Mode:        strat.mode(),
		TotalChunks: total,
		Metrics: Metrics{
			New:                 applied.Inserted,
			Updated:             applied.Updated,
			Skipped:             len(toSkip),
			Deleted:             applied.Deleted,
			EmbeddingsGenerated: len(texts),
		},
	}, nil
}
