package api

import (
	"encoding/json"
	"net/http"

	"github.com/koopa0/selldesk/internal/log"
	"github.com/koopa0/selldesk/internal/search"
)

// EnrichHandler exposes prompt enrichment for the chat path.
type EnrichHandler struct {
	enricher *search.Enricher
	logger   log.Logger
}

// NewEnrichHandler creates an enrich handler.
func NewEnrichHandler(enricher *search.Enricher, logger log.Logger) *EnrichHandler {
	return &EnrichHandler{enricher: enricher, logger: logger}
}

// RegisterRoutes registers enrichment routes on the given mux.
func (h *EnrichHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/enrich", h.enrich)
}

// EnrichRequest is the chat path's enrichment call.
type EnrichRequest struct {
	UserMessage    string   `json:"user_message"`
	CabinetID      int64    `json:"cabinet_id"`
	OriginalPrompt string   `json:"original_prompt"`
	ChunkTypes     []string `json:"chunk_types,omitempty"`
}

// EnrichResponse carries the (possibly unmodified) prompt.
type EnrichResponse struct {
	Prompt string `json:"prompt"`
}

// enrich returns the original prompt with retrieved context appended.
// Retrieval failures degrade to the unmodified prompt inside the enricher;
// the only error surface here is request validation.
func (h *EnrichHandler) enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.CabinetID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "cabinet_id must be positive")
		return
	}
	if req.UserMessage == "" {
		writeJSON(w, http.StatusOK, EnrichResponse{Prompt: req.OriginalPrompt})
		return
	}

	prompt := h.enricher.Enrich(r.Context(), req.UserMessage, req.CabinetID, req.OriginalPrompt, req.ChunkTypes...)
	writeJSON(w, http.StatusOK, EnrichResponse{Prompt: prompt})
}
