// Package app wires the application together: configuration, database pool,
// Genkit embedder, and the indexing and search components.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/selldesk/db"
	"github.com/koopa0/selldesk/internal/config"
	"github.com/koopa0/selldesk/internal/database"
	"github.com/koopa0/selldesk/internal/embed"
	"github.com/koopa0/selldesk/internal/index"
	"github.com/koopa0/selldesk/internal/search"
	"github.com/koopa0/selldesk/internal/source"
)

// App holds the initialized application components.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Extractor *source.Extractor
	Generator *embed.Generator
	Store     *index.Store
	Tracker   *index.Tracker
	Indexer   *index.Service
	Searcher  *search.Searcher
	Enricher  *search.Enricher

	dbCleanup func()
}

// Setup creates and initializes the application. Migrations run before the
// pool is handed to any component. Call Close to release resources.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := cfg.ValidateEmbedder(); err != nil {
		return nil, err
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, cleanup, err := database.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.dbCleanup = cleanup

	a.Genkit = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	a.Embedder = googlegenai.GoogleAIEmbedder(a.Genkit, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	a.Extractor = source.NewExtractor(pool, cfg.FreshnessWindow(), logger.With("component", "extractor"))
	a.Generator = embed.New(a.Embedder, embed.Config{
		Dimension:     cfg.EmbedderDimension,
		BatchSize:     cfg.EmbedBatchSize,
		MaxRetries:    cfg.EmbedMaxRetries,
		RetryBase:     cfg.EmbedRetryBase(),
		Timeout:       cfg.EmbedTimeout(),
		RatePerSecond: cfg.EmbedRatePerSecond,
	}, logger.With("component", "embed"))
	a.Store = index.NewStore(pool, logger.With("component", "store"))
	a.Tracker = index.NewTracker(pool, logger.With("component", "tracker"))
	a.Indexer = index.NewService(a.Extractor, a.Generator, a.Store, a.Tracker,
		logger.With("component", "indexer"))
	a.Searcher = search.NewSearcher(pool, a.Generator,
		cfg.SearchMaxResults, cfg.SearchMinSimilarity, logger.With("component", "search"))
	a.Enricher = search.NewEnricher(a.Searcher, cfg.ContextMaxLength,
		logger.With("component", "enrich"))

	return a, nil
}

// Close releases application resources.
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}
