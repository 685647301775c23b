package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/koopa0/selldesk/internal/index"
	"github.com/koopa0/selldesk/internal/log"
)

// IndexingHandler exposes the indexing trigger and the status query.
type IndexingHandler struct {
	submitter Submitter
	tracker   StatusReader
	logger    log.Logger
}

// NewIndexingHandler creates an indexing handler.
func NewIndexingHandler(submitter Submitter, tracker StatusReader, logger log.Logger) *IndexingHandler {
	return &IndexingHandler{submitter: submitter, tracker: tracker, logger: logger}
}

// RegisterRoutes registers indexing routes on the given mux.
func (h *IndexingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/index", h.trigger)
	mux.HandleFunc("GET /api/index/status", h.status)
}

// trigger accepts an indexing request and queues it. Submission is
// fire-and-forget: the response acknowledges queueing, the outcome lands in
// the stored index status and the logs.
func (h *IndexingHandler) trigger(w http.ResponseWriter, r *http.Request) {
	var req index.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if req.CabinetID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "cabinet_id must be positive")
		return
	}
	for table := range req.ChangedIDs {
		if !table.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_request",
				"unknown table in changed_ids: "+string(table))
			return
		}
	}

	if err := h.submitter.Submit(req); err != nil {
		switch {
		case errors.Is(err, index.ErrQueueFull):
			writeError(w, http.StatusServiceUnavailable, "queue_full", "indexing queue is full, retry later")
		case errors.Is(err, index.ErrPoolClosed):
			writeError(w, http.StatusServiceUnavailable, "shutting_down", "indexer is shutting down")
		default:
			h.logger.Error("failed to submit indexing request", "cabinet_id", req.CabinetID, "error", err)
			writeError(w, http.StatusInternalServerError, "submit_failed", "")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":     true,
		"cabinet_id": req.CabinetID,
		"mode":       req.Mode(),
	})
}

// status reports the cabinet's indexing state, 404 if never indexed.
func (h *IndexingHandler) status(w http.ResponseWriter, r *http.Request) {
	cabinetID, err := strconv.ParseInt(r.URL.Query().Get("cabinet_id"), 10, 64)
	if err != nil || cabinetID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "cabinet_id must be a positive integer")
		return
	}

	rec, err := h.tracker.Get(r.Context(), cabinetID)
	if err != nil {
		if errors.Is(err, index.ErrStatusNotFound) {
			writeError(w, http.StatusNotFound, "not_indexed", "cabinet has never been indexed")
			return
		}
		h.logger.Error("failed to read index status", "cabinet_id", cabinetID, "error", err)
		writeError(w, http.StatusInternalServerError, "status_failed", "")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}
