package chunk

import (
	"strings"
	"testing"
	"time"

	"github.com/koopa0/selldesk/internal/source"
)

func strPtr(s string) *string { return &s }

func testSnapshot() *source.Snapshot {
	return &source.Snapshot{
		Products: []source.Product{
			{
				ID: 10, CabinetID: 42, Name: strPtr("Blue Dress"), Brand: strPtr("Nordwind"),
				Category: strPtr("Dresses"), Price: 2490.50, Rating: 4.6, ReviewCount: 128, Active: true,
			},
		},
		Orders: []source.Order{
			{
				ID: 1, CabinetID: 42, ProductID: 10, Size: strPtr("M"), Price: 2490.50,
				Status: strPtr("delivered"), OrderedAt: time.Date(2026, 5, 14, 10, 0, 0, 0, time.UTC),
			},
		},
		Stocks: []source.Stock{
			{ID: 3, CabinetID: 42, ProductID: 10, Size: strPtr("M"), Warehouse: strPtr("Koledino"), Quantity: 17},
		},
		Reviews: []source.Review{
			{
				ID: 7, CabinetID: 42, ProductID: 10, Rating: 5,
				Text:      strPtr("Great quality, fits perfectly."),
				CreatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		Sales: []source.Sale{
			{
				ID: 9, CabinetID: 42, ProductID: 10, SaleType: strPtr("sale"), Price: 2490.50,
				SoldAt: time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestBuild_OneChunkPerRow(t *testing.T) {
	chunks := Build(testSnapshot())
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}

	byType := make(map[Type]Chunk)
	for _, c := range chunks {
		byType[c.Type] = c
	}
	for _, typ := range []Type{TypeOrder, TypeProduct, TypeStock, TypeReview, TypeSale} {
		if _, ok := byType[typ]; !ok {
			t.Errorf("missing chunk type %q", typ)
		}
	}
}

func TestBuild_Templates(t *testing.T) {
	chunks := Build(testSnapshot())
	byType := make(map[Type]string)
	for _, c := range chunks {
		byType[c.Type] = c.Text
	}

	tests := []struct {
		typ  Type
		want []string
	}{
		{TypeOrder, []string{"Order #1", "Blue Dress", "size M", "2490.50", "delivered", "2026-05-14"}},
		{TypeProduct, []string{`Product "Blue Dress"`, "Nordwind", "Dresses", "4.6", "128 reviews"}},
		{TypeStock, []string{"Blue Dress", "Koledino", "17 units"}},
		{TypeReview, []string{"Blue Dress", "5/5", "Great quality", "2026-06-01"}},
		{TypeSale, []string{"Sale #9", "Blue Dress", "type sale", "2026-06-02"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			text := byType[tt.typ]
			for _, want := range tt.want {
				if !strings.Contains(text, want) {
					t.Errorf("chunk %q missing %q in %q", tt.typ, want, text)
				}
			}
		})
	}
}

func TestBuild_MissingFieldsRenderPlaceholders(t *testing.T) {
	snap := &source.Snapshot{
		Orders: []source.Order{
			// Product 99 is not in the snapshot, size and status are null.
			{ID: 2, CabinetID: 42, ProductID: 99, Price: 100},
		},
	}
	chunks := Build(snap)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}

	text := chunks[0].Text
	for _, want := range []string{"Unknown product", "size N/A", "status N/A", "ordered N/A"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
}

func TestBuild_RenderStableAcrossExtractionModes(t *testing.T) {
	full := testSnapshot()

	// A delta naming only the order carries no product row; the extractor
	// resolves the referenced name instead.
	delta := &source.Snapshot{
		Orders:       []source.Order{full.Orders[0]},
		ProductNames: map[int64]string{10: "Blue Dress"},
	}

	var fromFull Chunk
	for _, c := range Build(full) {
		if c.Type == TypeOrder {
			fromFull = c
		}
	}
	fromDelta := Build(delta)[0]

	if fromDelta.Text != fromFull.Text {
		t.Errorf("order text differs by mode:\nfull:  %q\ndelta: %q", fromFull.Text, fromDelta.Text)
	}
	if Hash(fromDelta.Text) != Hash(fromFull.Text) {
		t.Error("hash differs by mode, unchanged chunk would be re-embedded")
	}
}

func TestBuild_SnapshotProductWinsOverResolvedName(t *testing.T) {
	snap := testSnapshot()
	snap.ProductNames = map[int64]string{10: "Stale Name"}

	for _, c := range Build(snap) {
		if c.Type == TypeOrder && !strings.Contains(c.Text, "Blue Dress") {
			t.Errorf("order should use the snapshot product's name, got %q", c.Text)
		}
	}
}

func TestBuild_ReviewTextTruncated(t *testing.T) {
	long := strings.Repeat("очень длинный отзыв ", 50) // multi-byte, well over the limit
	snap := &source.Snapshot{
		Reviews: []source.Review{
			{ID: 1, CabinetID: 42, ProductID: 10, Rating: 3, Text: &long, CreatedAt: time.Now()},
		},
	}

	chunks := Build(snap)
	text := chunks[0].Text
	if len([]rune(text)) > maxReviewTextLen+100 {
		t.Errorf("review chunk not truncated: %d runes", len([]rune(text)))
	}
	if !strings.Contains(text, "…") {
		t.Errorf("truncated review should carry ellipsis: %q", text)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build(testSnapshot())
	b := Build(testSnapshot())
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestHash(t *testing.T) {
	if Hash("abc") != Hash("abc") {
		t.Error("hash not deterministic")
	}
	if Hash("abc") == Hash("abd") {
		t.Error("different texts must hash differently")
	}
	if len(Hash("")) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(Hash("")))
	}
}

func TestTypeForTable(t *testing.T) {
	for _, table := range source.Tables {
		if TypeForTable(table) == "" {
			t.Errorf("no chunk type for table %q", table)
		}
	}
	if TypeForTable(source.Table("bogus")) != "" {
		t.Error("unknown table should map to empty type")
	}
}
