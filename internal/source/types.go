// Package source reads cabinet domain rows from the relational source-of-truth
// tables (orders, products, stocks, reviews, sales).
//
// The package owns the per-table freshness predicates: rows outside the
// freshness window are invisible to the indexing pipeline, which is also how
// full rebuilds decide what to purge.
package source

import "time"

// Table identifies one of the five indexed source tables.
type Table string

const (
	TableOrders   Table = "orders"
	TableProducts Table = "products"
	TableStocks   Table = "stocks"
	TableReviews  Table = "reviews"
	TableSales    Table = "sales"
)

// Tables lists all indexed tables in a fixed iteration order.
var Tables = []Table{TableOrders, TableProducts, TableStocks, TableReviews, TableSales}

// Valid reports whether t names a known source table.
func (t Table) Valid() bool {
	switch t {
	case TableOrders, TableProducts, TableStocks, TableReviews, TableSales:
		return true
	}
	return false
}

// ChangedIDs maps a table to the source-row ids the upstream sync job
// reported as changed. A nil map means "no delta available": extract
// everything within the freshness window.
type ChangedIDs map[Table][]int64

// Order is one marketplace order row.
type Order struct {
	ID        int64     `db:"id"`
	CabinetID int64     `db:"cabinet_id"`
	ProductID int64     `db:"product_id"`
	Size      *string   `db:"size"`
	Price     float64   `db:"price"`
	Status    *string   `db:"status"`
	OrderedAt time.Time `db:"ordered_at"`
}

// Product is one catalog product row.
type Product struct {
	ID          int64   `db:"id"`
	CabinetID   int64   `db:"cabinet_id"`
	Name        *string `db:"name"`
	Brand       *string `db:"brand"`
	Category    *string `db:"category"`
	Price       float64 `db:"price"`
	Rating      float64 `db:"rating"`
	ReviewCount int32   `db:"review_count"`
	Active      bool    `db:"active"`
}

// Stock is one warehouse stock level row.
type Stock struct {
	ID        int64   `db:"id"`
	CabinetID int64   `db:"cabinet_id"`
	ProductID int64   `db:"product_id"`
	Size      *string `db:"size"`
	Warehouse *string `db:"warehouse_name"`
	Quantity  int32   `db:"quantity"`
}

// Review is one customer review row.
type Review struct {
	ID        int64     `db:"id"`
	CabinetID int64     `db:"cabinet_id"`
	ProductID int64     `db:"product_id"`
	Rating    int32     `db:"rating"`
	Text      *string   `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// Sale is one sale/return row.
type Sale struct {
	ID        int64     `db:"id"`
	CabinetID int64     `db:"cabinet_id"`
	ProductID int64     `db:"product_id"`
	SaleType  *string   `db:"sale_type"`
	Price     float64   `db:"price"`
	SoldAt    time.Time `db:"sold_at"`
}

// Snapshot holds the rows one extraction call produced, grouped by table.
// Tables that were skipped (absent from the delta) have nil slices.
//
// ProductNames carries display names for product ids that snapshot rows
// reference without the product row itself being present, which happens on
// delta extractions. It makes chunk rendering independent of what the delta
// contains; names are supporting data, never counted as rows.
type Snapshot struct {
	Orders   []Order
	Products []Product
	Stocks   []Stock
	Reviews  []Review
	Sales    []Sale

	ProductNames map[int64]string
}

// Empty reports whether the snapshot contains no rows at all.
func (s *Snapshot) Empty() bool {
	return len(s.Orders) == 0 && len(s.Products) == 0 && len(s.Stocks) == 0 &&
		len(s.Reviews) == 0 && len(s.Sales) == 0
}

// Len returns the total number of rows across all tables.
func (s *Snapshot) Len() int {
	return len(s.Orders) + len(s.Products) + len(s.Stocks) + len(s.Reviews) + len(s.Sales)
}
