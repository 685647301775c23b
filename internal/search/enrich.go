package search

import (
	"context"
	"log/slog"
	"strings"
)

// Context block delimiters so the LLM can tell retrieved facts from
// instructions.
const (
	contextHeader = "=== RELEVANT DATA ==="
	contextFooter = "=== END RELEVANT DATA ==="
)

// ContextSearcher retrieves relevant chunks for a query.
// Satisfied by *Searcher.
type ContextSearcher interface {
	Search(ctx context.Context, query string, cabinetID int64, opts ...Option) ([]Result, error)
}

// Enricher splices retrieved context into chat prompts.
//
// Enrichment is an enhancement, not a dependency: every failure path
// degrades to the unmodified prompt so the chat response path never breaks
// because retrieval did.
type Enricher struct {
	searcher  ContextSearcher
	maxLength int
	logger    *slog.Logger
}

// NewEnricher creates an Enricher. maxLength bounds the rendered context
// block.
func NewEnricher(searcher ContextSearcher, maxLength int, logger *slog.Logger) *Enricher {
	if maxLength < 1 {
		maxLength = 3000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{searcher: searcher, maxLength: maxLength, logger: logger}
}

// Enrich searches the cabinet's chunks for userMessage and appends the
// assembled context to originalPrompt under a delimited heading. With no
// relevant chunks, or on any retrieval failure, it returns originalPrompt
// unchanged. Enrich never returns an error.
func (e *Enricher) Enrich(ctx context.Context, userMessage string, cabinetID int64, originalPrompt string, chunkTypes ...string) string {
	var opts []Option
	if len(chunkTypes) > 0 {
		opts = append(opts, WithChunkTypes(chunkTypes...))
	}

	results, err := e.searcher.Search(ctx, userMessage, cabinetID, opts...)
	if err != nil {
		e.logger.Warn("prompt enrichment degraded to original prompt",
			"cabinet_id", cabinetID, "error", err)
		return originalPrompt
	}

	block := BuildContext(results, e.maxLength)
	if block == "" {
		return originalPrompt
	}

	var b strings.Builder
	b.WriteString(originalPrompt)
	b.WriteString("\n\n")
	b.WriteString(contextHeader)
	b.WriteString("\n")
	b.WriteString(block)
	b.WriteString("\n")
	b.WriteString(contextFooter)
	return b.String()
}
