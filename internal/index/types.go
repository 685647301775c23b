// Package index implements the incremental RAG indexing pipeline: it turns
// extracted cabinet rows into embedded chunks in the vector store and tracks
// per-cabinet indexing state.
//
// The pipeline order is fixed: extract, build chunks, filter by content hash,
// generate embeddings, then write everything in one transaction. Embedding
// happens strictly before any write so a failed API call can never leave the
// store half-updated.
package index

import (
	"time"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/source"
)

// Mode distinguishes the two indexing strategies.
type Mode string

const (
	// ModeIncremental indexes only the rows named in the trigger's delta
	// (or everything, in fallback mode) and never deletes.
	ModeIncremental Mode = "incremental"

	// ModeFullRebuild re-extracts every fresh row and purges chunks whose
	// source row no longer qualifies.
	ModeFullRebuild Mode = "full_rebuild"
)

// Status values for a cabinet's indexing state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Key identifies a chunk's originating row: one chunk per key per cabinet.
type Key struct {
	Table    source.Table
	SourceID int64
}

// Record is a chunk ready for writing: rendered text, content hash, and the
// embedding vector produced for it.
type Record struct {
	chunk.Chunk
	Hash   string
	Vector []float32
}

// Request is the indexing-trigger payload: which cabinet, which mode, and
// optionally which rows changed.
//
// ChangedIDs == nil with FullRebuild == false is fallback mode: extract
// everything, skip unchanged chunks via hashing, delete nothing.
type Request struct {
	CabinetID   int64             `json:"cabinet_id"`
	FullRebuild bool              `json:"full_rebuild"`
	ChangedIDs  source.ChangedIDs `json:"changed_ids,omitempty"`
}

// Mode returns the strategy this request selects.
func (r Request) Mode() Mode {
	if r.FullRebuild {
		return ModeFullRebuild
	}
	return ModeIncremental
}

// Metrics counts what one indexing run did.
type Metrics struct {
	New                 int           `json:"new"`
	Updated             int           `json:"updated"`
	Skipped             int           `json:"skipped"`
	Deleted             int           `json:"deleted"`
	EmbeddingsGenerated int           `json:"embeddings_generated"`
	ExecutionTime       time.Duration `json:"execution_time"`
}

// Result is the structured outcome of one indexing run.
type Result struct {
	Status      string   `json:"status"` // "success" or "error"
	CabinetID   int64    `json:"cabinet_id"`
	Mode        Mode     `json:"indexing_mode"`
	TotalChunks int64    `json:"total_chunks"`
	Metrics     Metrics  `json:"metrics"`
	Errors      []string `json:"errors,omitempty"`
}

// StatusRecord is the queryable per-cabinet indexing state.
type StatusRecord struct {
	CabinetID         int64      `json:"cabinet_id"`
	IndexingStatus    Status     `json:"indexing_status"`
	LastIndexedAt     *time.Time `json:"last_indexed_at"`
	LastIncrementalAt *time.Time `json:"last_incremental_at"`
	TotalChunks       int64      `json:"total_chunks"`
}
