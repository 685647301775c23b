// Package search implements the query-time half of the pipeline: vector
// similarity search over indexed chunks, context assembly, and prompt
// enrichment for the chat path.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/source"
)

// queryTimeout bounds a single vector search round trip.
const queryTimeout = 10 * time.Second

// QueryEmbedder embeds a query string with the same model and dimension used
// for indexing. Satisfied by *embed.Generator.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Result is one retrieved chunk with its cosine similarity to the query.
type Result struct {
	Chunk      chunk.Chunk
	Similarity float64
}

// Option configures a search using the functional options pattern.
type Option func(*searchConfig)

type searchConfig struct {
	chunkTypes    []string
	maxResults    int
	minSimilarity float64
}

// WithChunkTypes restricts results to the given chunk types.
func WithChunkTypes(types ...string) Option {
	return func(c *searchConfig) {
		if len(types) > 0 {
			c.chunkTypes = types
		}
	}
}

// WithMaxResults caps the number of results. Default 5.
func WithMaxResults(n int) Option {
	return func(c *searchConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithMinSimilarity sets the relevance cutoff. Default 0.7.
func WithMinSimilarity(threshold float64) Option {
	return func(c *searchConfig) {
		c.minSimilarity = threshold
	}
}

// Searcher retrieves the most similar chunks for a cabinet.
// Safe for concurrent use.
type Searcher struct {
	pool     *pgxpool.Pool
	embedder QueryEmbedder
	logger   *slog.Logger

	defaultMaxResults    int
	defaultMinSimilarity float64
}

// NewSearcher creates a Searcher. defaultMaxResults and defaultMinSimilarity
// apply when a call passes no overriding options.
func NewSearcher(pool *pgxpool.Pool, embedder QueryEmbedder, defaultMaxResults int, defaultMinSimilarity float64, logger *slog.Logger) *Searcher {
	if defaultMaxResults < 1 {
		defaultMaxResults = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		pool:                 pool,
		embedder:             embedder,
		logger:               logger,
		defaultMaxResults:    defaultMaxResults,
		defaultMinSimilarity: defaultMinSimilarity,
	}
}

// Search embeds query and returns the cabinet's most similar chunks above the
// similarity threshold, ordered by descending similarity. No matches above
// the threshold is an empty slice, not an error.
func (s *Searcher) Search(ctx context.Context, query string, cabinetID int64, opts ...Option) ([]Result, error) {
	cfg := &searchConfig{
		maxResults:    s.defaultMaxResults,
		minSimilarity: s.defaultMinSimilarity,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	queryVec, err := s.embedder.EmbedQuery(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	vec := pgvector.NewVector(queryVec)

	// <=> is pgvector cosine distance; similarity = 1 - distance. The
	// chunk-type filter accepts NULL to mean "all types".
	var types any
	if len(cfg.chunkTypes) > 0 {
		types = cfg.chunkTypes
	}
	rows, err := s.pool.Query(queryCtx, `
		SELECT c.source_table, c.source_id, c.chunk_type, c.chunk_text,
		       1 - (e.embedding <=> $1) AS similarity
		FROM rag_chunks c
		JOIN rag_embeddings e ON e.chunk_id = c.id
		WHERE c.cabinet_id = $2
		  AND ($3::text[] IS NULL OR c.chunk_type = ANY($3::text[]))
		  AND 1 - (e.embedding <=> $1) >= $4
		ORDER BY e.embedding <=> $1
		LIMIT $5`,
		vec, cabinetID, types, cfg.minSimilarity, cfg.maxResults)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			table, chunkType, text string
			sourceID               int64
			similarity             float64
		)
		if err := rows.Scan(&table, &sourceID, &chunkType, &text, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, Result{
			Chunk: chunk.Chunk{
				Type:        chunk.Type(chunkType),
				SourceTable: source.Table(table),
				SourceID:    sourceID,
				Text:        text,
			},
			Similarity: similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	s.logger.Debug("vector search complete",
		"cabinet_id", cabinetID,
		"results", len(results),
		"min_similarity", cfg.minSimilarity)
	return results, nil
}
