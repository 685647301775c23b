package index

import (
	"context"
	"testing"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/log"
	"github.com/koopa0/selldesk/internal/source"
	"github.com/koopa0/selldesk/internal/testutil"
)

// embeddingDim matches the vector(N) column in the rag_embeddings migration.
const embeddingDim = 768

func testVector(seed float32) []float32 {
	vec := make([]float32, embeddingDim)
	vec[0] = seed
	return vec
}

func testRecord(table source.Table, id int64, text string, seed float32) Record {
	return Record{
		Chunk: chunk.Chunk{
			Type:        chunk.TypeForTable(table),
			SourceTable: table,
			SourceID:    id,
			Text:        text,
		},
		Hash:   chunk.Hash(text),
		Vector: testVector(seed),
	}
}

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewStore(pool, log.NewNop())
	const cabinetID = int64(42)

	t.Run("hashes on empty cabinet", func(t *testing.T) {
		hashes, err := store.Hashes(ctx, cabinetID)
		if err != nil {
			t.Fatalf("Hashes() error = %v", err)
		}
		if len(hashes) != 0 {
			t.Errorf("expected no hashes, got %d", len(hashes))
		}
	})

	t.Run("insert then update", func(t *testing.T) {
		records := []Record{
			testRecord(source.TableOrders, 1, "order one", 1),
			testRecord(source.TableProducts, 10, "product ten", 2),
		}

		res, err := store.Apply(ctx, cabinetID, records, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Inserted != 2 || res.Updated != 0 || res.Deleted != 0 {
			t.Errorf("first apply = %+v, want 2 inserts", res)
		}

		// Re-applying one record with changed text updates in place.
		res, err = store.Apply(ctx, cabinetID, []Record{
			testRecord(source.TableOrders, 1, "order one revised", 3),
		}, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Inserted != 0 || res.Updated != 1 {
			t.Errorf("second apply = %+v, want 1 update", res)
		}

		hashes, err := store.Hashes(ctx, cabinetID)
		if err != nil {
			t.Fatalf("Hashes() error = %v", err)
		}
		if len(hashes) != 2 {
			t.Fatalf("expected 2 stored hashes, got %d", len(hashes))
		}
		if hashes[Key{Table: source.TableOrders, SourceID: 1}] != chunk.Hash("order one revised") {
			t.Error("updated chunk's hash not stored")
		}

		count, err := store.Count(ctx, cabinetID)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 2 {
			t.Errorf("Count() = %d, want 2", count)
		}
	})

	t.Run("purge on full rebuild", func(t *testing.T) {
		// Only the orders chunk survives the rebuild's valid set.
		valid := map[Key]struct{}{
			{Table: source.TableOrders, SourceID: 1}: {},
		}

		res, err := store.Apply(ctx, cabinetID, nil, valid)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Deleted != 1 {
			t.Errorf("deleted = %d, want 1", res.Deleted)
		}

		count, err := store.Count(ctx, cabinetID)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 1 {
			t.Errorf("Count() after purge = %d, want 1", count)
		}

		// The cascade must have removed the orphaned embedding too.
		var embeddings int64
		if err := pool.QueryRow(ctx, `SELECT count(*) FROM rag_embeddings`).Scan(&embeddings); err != nil {
			t.Fatalf("counting embeddings: %v", err)
		}
		if embeddings != 1 {
			t.Errorf("embeddings after purge = %d, want 1", embeddings)
		}
	})

	t.Run("nil valid set deletes nothing", func(t *testing.T) {
		res, err := store.Apply(ctx, cabinetID, []Record{
			testRecord(source.TableReviews, 5, "review five", 4),
		}, nil)
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if res.Deleted != 0 {
			t.Errorf("incremental apply deleted %d rows", res.Deleted)
		}

		count, _ := store.Count(ctx, cabinetID)
		if count != 2 {
			t.Errorf("Count() = %d, want 2", count)
		}
	})

	t.Run("cabinets are isolated", func(t *testing.T) {
		const other = int64(7)
		if _, err := store.Apply(ctx, other, []Record{
			testRecord(source.TableOrders, 1, "other cabinet order", 5),
		}, nil); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		// A full rebuild of the other cabinet must not touch cabinet 42.
		if _, err := store.Apply(ctx, other, nil, map[Key]struct{}{}); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		count, _ := store.Count(ctx, cabinetID)
		if count != 2 {
			t.Errorf("cabinet 42 count = %d after purging cabinet 7, want 2", count)
		}
		otherCount, _ := store.Count(ctx, other)
		if otherCount != 0 {
			t.Errorf("cabinet 7 count = %d, want 0", otherCount)
		}
	})
}
