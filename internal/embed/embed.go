// Package embed wraps the external embedding model behind a batching,
// rate-limited, retrying generator.
//
// Embedding calls are the expensive part of indexing (network latency and
// per-token billing), so the generator batches texts, retries transient
// failures with exponential backoff, and refuses to return a partial result:
// either every input text gets a vector or the whole call fails.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrDimensionMismatch indicates the model returned vectors whose dimension
// does not match the configured store dimension. This is a configuration
// error, fatal for the run; it must never be stored per-record.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Config holds generator tuning knobs. Zero values are replaced by defaults.
type Config struct {
	// Dimension is the expected vector length (must match the vector(N)
	// column in the store).
	Dimension int

	// BatchSize is the number of texts per API call. Default 100.
	BatchSize int

	// MaxRetries bounds retry attempts per batch. Default 3.
	MaxRetries int

	// RetryBase is the initial backoff interval. Default 500ms.
	RetryBase time.Duration

	// Timeout bounds each API call. Default 30s.
	Timeout time.Duration

	// RatePerSecond limits API calls across batches. Default 5.
	RatePerSecond int
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 5
	}
}

// Generator batches texts and produces one fixed-dimension vector per text.
// It is safe for concurrent use.
type Generator struct {
	embedder ai.Embedder
	cfg      Config
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates a Generator around the given embedder.
func New(embedder ai.Embedder, cfg Config, logger *slog.Logger) *Generator {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		embedder: embedder,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond),
		logger:   logger,
	}
}

// Dimension returns the configured vector dimension.
func (g *Generator) Dimension() int {
	return g.cfg.Dimension
}

// Generate embeds all texts, order-preserving: len(result) == len(texts),
// result[i] belongs to texts[i]. Empty input returns nil without touching
// the API.
//
// A batch that still fails after the retry budget fails the whole call;
// silently dropping a batch would corrupt the positional contract.
func (g *Generator) Generate(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := min(start+g.cfg.BatchSize, len(texts))

		batch, err := g.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d of %d texts: %w", start, end, len(texts), err)
		}
		vectors = append(vectors, batch...)
	}

	g.logger.Debug("embeddings generated", "texts", len(texts), "dimension", g.cfg.Dimension)
	return vectors, nil
}

// EmbedQuery embeds a single query string with the same model and dimension
// used for indexing.
func (g *Generator) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := g.Generate(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch performs one API call with bounded retries.
func (g *Generator) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(batch))
	for i, text := range batch {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	// The Gemini embedding models default to larger vectors; ask for the
	// store's dimension so truncation happens server-side.
	dim := int32(g.cfg.Dimension) // #nosec G115 -- dimension is validated to [1, 4096]
	options := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.cfg.RetryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(g.cfg.MaxRetries)), ctx)

	var vectors [][]float32
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := g.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		resp, err := g.embedder.Embed(callCtx, &ai.EmbedRequest{Input: docs, Options: options})
		if err != nil {
			// Timeouts and transport errors are retryable; the backoff
			// policy bounds total attempts.
			g.logger.Warn("embedding call failed",
				"attempt", attempt,
				"batch_size", len(batch),
				"error", err)
			return err
		}

		if len(resp.Embeddings) != len(batch) {
			return backoff.Permanent(fmt.Errorf(
				"embedder returned %d vectors for %d texts", len(resp.Embeddings), len(batch)))
		}

		out := make([][]float32, len(batch))
		for i, e := range resp.Embeddings {
			if len(e.Embedding) != g.cfg.Dimension {
				return backoff.Permanent(fmt.Errorf("%w: got %d, want %d",
					ErrDimensionMismatch, len(e.Embedding), g.cfg.Dimension))
			}
			out[i] = e.Embedding
		}
		vectors = out
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}

	return vectors, nil
}
