// Package chunk renders extracted source rows into retrievable text chunks.
//
// Build is a pure function: no I/O, no clock, no randomness. Given the same
// snapshot it produces the same chunks, which is what makes the content-hash
// skip logic in the indexer trustworthy.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/koopa0/selldesk/internal/source"
)

// Type is the semantic category of a chunk.
type Type string

const (
	TypeOrder   Type = "order"
	TypeProduct Type = "product"
	TypeStock   Type = "stock"
	TypeReview  Type = "review"
	TypeSale    Type = "sale"
)

// TypeForTable maps a source table to its chunk type.
func TypeForTable(t source.Table) Type {
	switch t {
	case source.TableOrders:
		return TypeOrder
	case source.TableProducts:
		return TypeProduct
	case source.TableStocks:
		return TypeStock
	case source.TableReviews:
		return TypeReview
	case source.TableSales:
		return TypeSale
	}
	return ""
}

// maxReviewTextLen bounds review free text so chunk sizes stay predictable.
const maxReviewTextLen = 200

// dateLayout is the display format for dates embedded in chunk text.
const dateLayout = "2006-01-02"

// Chunk is one unit of retrievable text derived from a single source row.
type Chunk struct {
	Type        Type
	SourceTable source.Table
	SourceID    int64
	Text        string
}

// Hash returns the SHA-256 hex digest of text. Chunks whose hash matches the
// stored one are skipped by the indexer without an embedding call.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Build renders one chunk per snapshot row.
//
// A product-id → display-name lookup is built from the snapshot's products
// plus the extractor's resolved ProductNames, because order/stock/review/sale
// rows reference products by id and a delta extraction may carry a row
// without its product. Ids unknown to both render as "Unknown product".
// Chunk order in the result carries no meaning.
func Build(snap *source.Snapshot) []Chunk {
	names := make(map[int64]string, len(snap.Products)+len(snap.ProductNames))
	for _, p := range snap.Products {
		if p.Name != nil && *p.Name != "" {
			names[p.ID] = *p.Name
		}
	}
	for id, name := range snap.ProductNames {
		if _, ok := names[id]; !ok && name != "" {
			names[id] = name
		}
	}

	chunks := make([]Chunk, 0, snap.Len())

	for _, o := range snap.Orders {
		chunks = append(chunks, Chunk{
			Type:        TypeOrder,
			SourceTable: source.TableOrders,
			SourceID:    o.ID,
			Text:        renderOrder(o, names),
		})
	}
	for _, p := range snap.Products {
		chunks = append(chunks, Chunk{
			Type:        TypeProduct,
			SourceTable: source.TableProducts,
			SourceID:    p.ID,
			Text:        renderProduct(p),
		})
	}
	for _, st := range snap.Stocks {
		chunks = append(chunks, Chunk{
			Type:        TypeStock,
			SourceTable: source.TableStocks,
			SourceID:    st.ID,
			Text:        renderStock(st, names),
		})
	}
	for _, r := range snap.Reviews {
		chunks = append(chunks, Chunk{
			Type:        TypeReview,
			SourceTable: source.TableReviews,
			SourceID:    r.ID,
			Text:        renderReview(r, names),
		})
	}
	for _, s := range snap.Sales {
		chunks = append(chunks, Chunk{
			Type:        TypeSale,
			SourceTable: source.TableSales,
			SourceID:    s.ID,
			Text:        renderSale(s, names),
		})
	}

	return chunks
}

func renderOrder(o source.Order, names map[int64]string) string {
	return fmt.Sprintf("Order #%d: %s (size %s), price %.2f, status %s, ordered %s",
		o.ID,
		productName(names, o.ProductID),
		orNA(o.Size),
		o.Price,
		orNA(o.Status),
		formatDate(o.OrderedAt),
	)
}

func renderProduct(p source.Product) string {
	name := "N/A"
	if p.Name != nil && *p.Name != "" {
		name = *p.Name
	}
	return fmt.Sprintf("Product %q: brand %s, category %s, price %.2f, rating %.1f (%d reviews)",
		name,
		orNA(p.Brand),
		orNA(p.Category),
		p.Price,
		p.Rating,
		p.ReviewCount,
	)
}

func renderStock(st source.Stock, names map[int64]string) string {
	return fmt.Sprintf("Stock: %s (size %s) at warehouse %s: %d units",
		productName(names, st.ProductID),
		orNA(st.Size),
		orNA(st.Warehouse),
		st.Quantity,
	)
}

func renderReview(r source.Review, names map[int64]string) string {
	return fmt.Sprintf("Review for %s: %d/5, %q, written %s",
		productName(names, r.ProductID),
		r.Rating,
		truncateRunes(orNA(r.Text), maxReviewTextLen),
		formatDate(r.CreatedAt),
	)
}

func renderSale(s source.Sale, names map[int64]string) string {
	return fmt.Sprintf("Sale #%d: %s, type %s, price %.2f, sold %s",
		s.ID,
		productName(names, s.ProductID),
		orNA(s.SaleType),
		s.Price,
		formatDate(s.SoldAt),
	)
}

// productName resolves a product id to its display name, falling back to an
// explicit placeholder. This is presentation data, never an error.
func productName(names map[int64]string, productID int64) string {
	if name, ok := names[productID]; ok {
		return name
	}
	return "Unknown product"
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(dateLayout)
}

// truncateRunes bounds s to max runes, never splitting a rune.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
