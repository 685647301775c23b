package index

import (
	"testing"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/source"
)

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{Type: chunk.TypeOrder, SourceTable: source.TableOrders, SourceID: 1, Text: "Order #1"},
		{Type: chunk.TypeProduct, SourceTable: source.TableProducts, SourceID: 10, Text: "Product A"},
		{Type: chunk.TypeReview, SourceTable: source.TableReviews, SourceID: 7, Text: "Review text"},
	}
}

func TestSplitByHash_EmptyPrior(t *testing.T) {
	toEmbed, toSkip := splitByHash(testChunks(), map[Key]string{})
	if len(toEmbed) != 3 {
		t.Errorf("expected all 3 chunks to embed, got %d", len(toEmbed))
	}
	if len(toSkip) != 0 {
		t.Errorf("expected no skips on first run, got %d", len(toSkip))
	}
	for _, rec := range toEmbed {
		if rec.Hash != chunk.Hash(rec.Text) {
			t.Errorf("record hash not derived from text: %q", rec.Hash)
		}
	}
}

func TestSplitByHash_UnchangedSkipped(t *testing.T) {
	chunks := testChunks()
	prior := map[Key]string{
		{Table: source.TableOrders, SourceID: 1}:    chunk.Hash("Order #1"),
		{Table: source.TableProducts, SourceID: 10}: chunk.Hash("old product text"),
	}

	toEmbed, toSkip := splitByHash(chunks, prior)

	if len(toSkip) != 1 {
		t.Fatalf("expected 1 skip, got %d", len(toSkip))
	}
	if toSkip[0].SourceID != 1 {
		t.Errorf("skipped the wrong chunk: source id %d", toSkip[0].SourceID)
	}

	// The changed product and the never-seen review both embed.
	if len(toEmbed) != 2 {
		t.Fatalf("expected 2 to embed, got %d", len(toEmbed))
	}
	ids := map[int64]bool{toEmbed[0].SourceID: true, toEmbed[1].SourceID: true}
	if !ids[10] || !ids[7] {
		t.Errorf("unexpected embed set: %v", ids)
	}
}

func TestSplitByHash_SameIDDifferentTable(t *testing.T) {
	chunks := []chunk.Chunk{
		{Type: chunk.TypeOrder, SourceTable: source.TableOrders, SourceID: 5, Text: "order five"},
		{Type: chunk.TypeSale, SourceTable: source.TableSales, SourceID: 5, Text: "sale five"},
	}
	prior := map[Key]string{
		{Table: source.TableOrders, SourceID: 5}: chunk.Hash("order five"),
	}

	toEmbed, toSkip := splitByHash(chunks, prior)
	if len(toSkip) != 1 || toSkip[0].SourceTable != source.TableOrders {
		t.Errorf("keys must be (table, id) pairs: skip=%v", toSkip)
	}
	if len(toEmbed) != 1 || toEmbed[0].SourceTable != source.TableSales {
		t.Errorf("sale with colliding id must embed: embed=%v", toEmbed)
	}
}

func TestSplitByHash_Empty(t *testing.T) {
	toEmbed, toSkip := splitByHash(nil, map[Key]string{{Table: source.TableOrders, SourceID: 1}: "x"})
	if len(toEmbed) != 0 || len(toSkip) != 0 {
		t.Errorf("empty input must split to nothing, got %d/%d", len(toEmbed), len(toSkip))
	}
}
