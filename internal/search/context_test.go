package search

import (
	"strings"
	"testing"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/source"
)

func result(t chunk.Type, table source.Table, id int64, text string, sim float64) Result {
	return Result{
		Chunk:      chunk.Chunk{Type: t, SourceTable: table, SourceID: id, Text: text},
		Similarity: sim,
	}
}

func TestBuildContext_Empty(t *testing.T) {
	if got := BuildContext(nil, 1000); got != "" {
		t.Errorf("empty results must render to empty string, got %q", got)
	}
}

func TestBuildContext_GroupOrderAndHeadings(t *testing.T) {
	results := []Result{
		result(chunk.TypeSale, source.TableSales, 1, "sale one", 0.9),
		result(chunk.TypeOrder, source.TableOrders, 1, "order one", 0.8),
		result(chunk.TypeProduct, source.TableProducts, 1, "product one", 0.95),
	}

	got := BuildContext(results, 10000)

	orderPos := strings.Index(got, "## Orders")
	productPos := strings.Index(got, "## Products")
	salePos := strings.Index(got, "## Sales")
	if orderPos < 0 || productPos < 0 || salePos < 0 {
		t.Fatalf("missing group headings in %q", got)
	}
	// Fixed display order regardless of similarity or input order.
	if !(orderPos < productPos && productPos < salePos) {
		t.Errorf("groups out of order: orders@%d products@%d sales@%d", orderPos, productPos, salePos)
	}
	if strings.Contains(got, "## Stock") || strings.Contains(got, "## Reviews") {
		t.Error("empty groups must not render headings")
	}
}

func TestBuildContext_SortWithinGroup(t *testing.T) {
	results := []Result{
		result(chunk.TypeOrder, source.TableOrders, 1, "weaker match", 0.71),
		result(chunk.TypeOrder, source.TableOrders, 2, "stronger match", 0.93),
	}

	got := BuildContext(results, 10000)
	if strings.Index(got, "stronger match") > strings.Index(got, "weaker match") {
		t.Errorf("results not sorted by descending similarity: %q", got)
	}
}

func TestBuildContext_DedupeKeepsHigherSimilarity(t *testing.T) {
	results := []Result{
		result(chunk.TypeOrder, source.TableOrders, 1, "first hit", 0.75),
		result(chunk.TypeOrder, source.TableOrders, 1, "better hit", 0.90),
	}

	got := BuildContext(results, 10000)
	if strings.Contains(got, "first hit") {
		t.Errorf("lower-similarity duplicate must be dropped: %q", got)
	}
	if !strings.Contains(got, "better hit") {
		t.Errorf("higher-similarity duplicate must survive: %q", got)
	}
	if strings.Count(got, "- ") != 1 {
		t.Errorf("expected exactly one entry after dedupe: %q", got)
	}
}

func TestBuildContext_Truncation(t *testing.T) {
	var results []Result
	for i := int64(1); i <= 20; i++ {
		results = append(results,
			result(chunk.TypeOrder, source.TableOrders, i, strings.Repeat("x", 50), 0.9))
	}

	const maxLength = 300
	got := BuildContext(results, maxLength)

	if !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("truncated output must end with the marker: %q", got)
	}
	if len(got) > maxLength+1+len(TruncationMarker) {
		t.Errorf("output length %d exceeds budget %d plus marker", len(got), maxLength)
	}
	// Truncation happens at line boundaries: no partial entry lines.
	body := strings.TrimSuffix(got, "\n"+TruncationMarker)
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "- ") && len(line) != 2+50 {
			t.Errorf("entry line cut mid-text: %q", line)
		}
	}
}

func TestBuildContext_NoTruncationUnderBudget(t *testing.T) {
	results := []Result{
		result(chunk.TypeOrder, source.TableOrders, 1, "short", 0.9),
	}
	got := BuildContext(results, 10000)
	if strings.Contains(got, TruncationMarker) {
		t.Errorf("untruncated output must not carry the marker: %q", got)
	}
}

func TestBuildContext_TinyBudget(t *testing.T) {
	results := []Result{
		result(chunk.TypeOrder, source.TableOrders, 1, strings.Repeat("x", 100), 0.9),
	}
	got := BuildContext(results, 3)
	if got != TruncationMarker {
		t.Errorf("budget too small for any line should yield bare marker, got %q", got)
	}
}
