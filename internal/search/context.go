package search

import (
	"sort"
	"strings"

	"github.com/koopa0/selldesk/internal/chunk"
	"github.com/koopa0/selldesk/internal/index"
)

// TruncationMarker is appended whenever BuildContext cuts output to fit
// the length budget. Truncation is never silent.
const TruncationMarker = "[... context truncated]"

// displayOrder fixes the group ordering in rendered context.
var displayOrder = []chunk.Type{
	chunk.TypeOrder,
	chunk.TypeProduct,
	chunk.TypeStock,
	chunk.TypeReview,
	chunk.TypeSale,
}

var groupHeadings = map[chunk.Type]string{
	chunk.TypeOrder:   "Orders",
	chunk.TypeProduct: "Products",
	chunk.TypeStock:   "Stock",
	chunk.TypeReview:  "Reviews",
	chunk.TypeSale:    "Sales",
}

// BuildContext renders retrieved chunks into a bounded text block for
// prompt insertion.
//
// Results are deduplicated by (source table, source id) keeping the higher
// similarity, grouped by chunk type in a fixed display order, and sorted by
// descending similarity within each group. If the rendered block would
// exceed maxLength, it is cut at a line boundary and TruncationMarker is
// appended; output length never exceeds maxLength + marker length.
//
// Empty input returns the empty string, which the enricher treats as
// "no enrichment available".
func BuildContext(results []Result, maxLength int) string {
	if len(results) == 0 {
		return ""
	}

	// Dedupe by source row; the same row surfacing under two chunk types
	// is unexpected but harmless to guard.
	best := make(map[index.Key]Result, len(results))
	for _, r := range results {
		key := index.Key{Table: r.Chunk.SourceTable, SourceID: r.Chunk.SourceID}
		if prev, ok := best[key]; !ok || r.Similarity > prev.Similarity {
			best[key] = r
		}
	}

	grouped := make(map[chunk.Type][]Result)
	for _, r := range best {
		grouped[r.Chunk.Type] = append(grouped[r.Chunk.Type], r)
	}

	var lines []string
	for _, t := range displayOrder {
		group := grouped[t]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return group[i].Similarity > group[j].Similarity
		})

		lines = append(lines, "## "+groupHeadings[t])
		for _, r := range group {
			lines = append(lines, "- "+r.Chunk.Text)
		}
	}

	text := strings.Join(lines, "\n")
	if len(text) <= maxLength {
		return text
	}

	// Re-accumulate whole lines under the budget; never cut mid-line.
	var b strings.Builder
	for i, line := range lines {
		add := len(line)
		if i > 0 {
			add++ // newline
		}
		if b.Len()+add > maxLength {
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}
	if b.Len() == 0 {
		return TruncationMarker
	}
	return b.String() + "\n" + TruncationMarker
}
