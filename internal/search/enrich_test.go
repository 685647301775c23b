package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/log"
	"github.com/koopa0/selldesk/internal/source"
)

type fakeSearcher struct {
	results []Result
	err     error

	gotQuery string
	gotOpts  int
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ int64, opts ...Option) ([]Result, error) {
	f.gotQuery = query
	f.gotOpts = len(opts)
	return f.results, f.err
}

func TestEnrich_AppendsContext(t *testing.T) {
	searcher := &fakeSearcher{
		results: []Result{
			{
				Chunk:      chunk.Chunk{Type: chunk.TypeOrder, SourceTable: source.TableOrders, SourceID: 1, Text: "Order #1: Widget, 99.00"},
				Similarity: 0.9,
			},
		},
	}
	e := NewEnricher(searcher, 3000, log.NewNop())

	const original = "You are a marketplace assistant."
	got := e.Enrich(context.Background(), "recent orders?", 42, original)

	if !strings.HasPrefix(got, original) {
		t.Errorf("enriched prompt must start with the original: %q", got)
	}
	if !strings.Contains(got, contextHeader) || !strings.HasSuffix(got, contextFooter) {
		t.Errorf("context block not delimited: %q", got)
	}
	if !strings.Contains(got, "Order #1: Widget, 99.00") {
		t.Errorf("retrieved chunk text missing: %q", got)
	}
	if searcher.gotQuery != "recent orders?" {
		t.Errorf("search query = %q", searcher.gotQuery)
	}
}

func TestEnrich_SearchErrorFallsBack(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("db down")}
	e := NewEnricher(searcher, 3000, log.NewNop())

	const original = "original prompt"
	if got := e.Enrich(context.Background(), "q", 42, original); got != original {
		t.Errorf("search failure must fall back to original prompt, got %q", got)
	}
}

func TestEnrich_NoResultsFallsBack(t *testing.T) {
	searcher := &fakeSearcher{}
	e := NewEnricher(searcher, 3000, log.NewNop())

	const original = "original prompt"
	if got := e.Enrich(context.Background(), "q", 42, original); got != original {
		t.Errorf("empty retrieval must fall back to original prompt, got %q", got)
	}
}

func TestEnrich_ChunkTypesForwarded(t *testing.T) {
	searcher := &fakeSearcher{}
	e := NewEnricher(searcher, 3000, log.NewNop())

	e.Enrich(context.Background(), "q", 42, "p", "order", "review")
	if searcher.gotOpts != 1 {
		t.Errorf("expected one chunk-type option, got %d", searcher.gotOpts)
	}

	e.Enrich(context.Background(), "q", 42, "p")
	if searcher.gotOpts != 0 {
		t.Errorf("expected no options without chunk types, got %d", searcher.gotOpts)
	}
}

func TestSearchOptions(t *testing.T) {
	cfg := &searchConfig{maxResults: 5, minSimilarity: 0.7}

	WithChunkTypes("order")(cfg)
	WithMaxResults(10)(cfg)
	WithMinSimilarity(0.5)(cfg)

	if len(cfg.chunkTypes) != 1 || cfg.chunkTypes[0] != "order" {
		t.Errorf("chunk types = %v", cfg.chunkTypes)
	}
	if cfg.maxResults != 10 {
		t.Errorf("max results = %d", cfg.maxResults)
	}
	if cfg.minSimilarity != 0.5 {
		t.Errorf("min similarity = %v", cfg.minSimilarity)
	}

	// Invalid values leave the config untouched.
	WithChunkTypes()(cfg)
	WithMaxResults(0)(cfg)
	if len(cfg.chunkTypes) != 1 || cfg.maxResults != 10 {
		t.Errorf("invalid option values must be ignored: %+v", cfg)
	}
}
