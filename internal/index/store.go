package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/koopa0/selldesk/internal/source"
)

// Store persists chunks and their embeddings in PostgreSQL + pgvector.
//
// All writes for one indexing run go through Apply, which wraps them in a
// single transaction: concurrent readers see the pre-run or post-run state
// of a cabinet, never a mix.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// ApplyResult counts the rows one Apply call touched.
type ApplyResult struct {
	Inserted int
	Updated  int
	Deleted  int
}

// Hashes returns the stored content hash per (table, source id) for one
// cabinet. An empty map on a never-indexed cabinet is normal: the hash
// filter then routes every chunk to embedding.
func (s *Store) Hashes(ctx context.Context, cabinetID int64) (map[Key]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT source_table, source_id, chunk_hash
		FROM rag_chunks
		WHERE cabinet_id = $1`, cabinetID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[Key]string)
	for rows.Next() {
		var table string
		var sourceID int64
		var hash string
		if err := rows.Scan(&table, &sourceID, &hash); err != nil {
			return nil, fmt.Errorf("scanning chunk hash: %w", err)
		}
		hashes[Key{Table: source.Table(table), SourceID: sourceID}] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk hashes: %w", err)
	}

	return hashes, nil
}

// Apply writes one run's changes atomically: upserts every record and, when
// valid is non-nil (full rebuild), deletes chunks whose key is absent from
// valid. Any failure rolls the whole batch back.
//
// Upserts are keyed on (cabinet_id, source_table, source_id); an existing
// chunk keeps its id, so its rag_embeddings row is updated in place.
func (s *Store) Apply(ctx context.Context, cabinetID int64, records []Record, valid map[Key]struct{}) (ApplyResult, error) {
	var res ApplyResult

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, rec := range records {
			var chunkID int64
			var inserted bool

			// xmax = 0 distinguishes a fresh insert from a conflict update.
			err := tx.QueryRow(ctx, `
				INSERT INTO rag_chunks (cabinet_id, source_table, source_id, chunk_type, chunk_text, chunk_hash)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (cabinet_id, source_table, source_id) DO UPDATE
				SET chunk_type = EXCLUDED.chunk_type,
				    chunk_text = EXCLUDED.chunk_text,
				    chunk_hash = EXCLUDED.chunk_hash,
				    updated_at = now()
				RETURNING id, (xmax = 0)`,
				cabinetID, string(rec.SourceTable), rec.SourceID,
				string(rec.Type), rec.Text, rec.Hash,
			).Scan(&chunkID, &inserted)
			if err != nil {
				return fmt.Errorf("upserting chunk %s/%d: %w", rec.SourceTable, rec.SourceID, err)
			}

			vec := pgvector.NewVector(rec.Vector)
			if _, err := tx.Exec(ctx, `
				INSERT INTO rag_embeddings (chunk_id, embedding)
				VALUES ($1, $2)
				ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
				chunkID, vec); err != nil {
				return fmt.Errorf("upserting embedding for chunk %d: %w", chunkID, err)
			}

			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}

		if valid != nil {
			deleted, err := deleteStale(ctx, tx, cabinetID, valid)
			if err != nil {
				return err
			}
			res.Deleted = deleted
		}

		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}

	s.logger.Debug("store apply complete",
		"cabinet_id", cabinetID,
		"inserted", res.Inserted,
		"updated", res.Updated,
		"deleted", res.Deleted)
	return res, nil
}

// deleteStale removes chunks (and, via cascade, their embeddings) whose
// (table, source id) is not in the freshly extracted valid set. Called only
// on full rebuilds: an incremental delta is partial by definition and would
// cause mass incorrect deletion here.
func deleteStale(ctx context.Context, tx pgx.Tx, cabinetID int64, valid map[Key]struct{}) (int, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, source_table, source_id
		FROM rag_chunks
		WHERE cabinet_id = $1`, cabinetID)
	if err != nil {
		return 0, fmt.Errorf("listing chunks for stale check: %w", err)
	}

	var staleIDs []int64
	for rows.Next() {
		var id, sourceID int64
		var table string
		if err := rows.Scan(&id, &table, &sourceID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning chunk key: %w", err)
		}
		if _, ok := valid[Key{Table: source.Table(table), SourceID: sourceID}]; !ok {
			staleIDs = append(staleIDs, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("reading chunk keys: %w", err)
	}

	if len(staleIDs) == 0 {
		return 0, nil
	}

	tag, err := tx.Exec(ctx, `DELETE FROM rag_chunks WHERE cabinet_id = $1 AND id = ANY($2)`,
		cabinetID, staleIDs)
	if err != nil {
		return 0, fmt.Errorf("deleting stale chunks: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// Count returns the number of chunks currently stored for a cabinet.
func (s *Store) Count(ctx context.Context, cabinetID int64) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM rag_chunks WHERE cabinet_id = $1`, cabinetID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}
