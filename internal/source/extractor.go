package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Extractor pulls fresh cabinet rows from the source tables.
//
// Each table has a fetcher registered in tableFetchers; the freshness
// predicate lives in that fetcher's SQL, so a row outside the window is
// filtered at the database, never in Go.
type Extractor struct {
	pool   *pgxpool.Pool
	window time.Duration
	logger *slog.Logger
}

// NewExtractor creates an Extractor. window bounds how far back orders,
// reviews and sales are considered fresh.
func NewExtractor(pool *pgxpool.Pool, window time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{pool: pool, window: window, logger: logger}
}

// fetchFunc loads one table's rows into the snapshot. ids == nil means
// "all fresh rows"; a non-nil ids list restricts to those rows.
type fetchFunc func(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error

// tableFetchers is the fixed table registry. Adding a table means adding a
// row type, a fetcher, and a chunk template; nothing else branches on names.
var tableFetchers = map[Table]fetchFunc{
	TableOrders:   fetchOrders,
	TableProducts: fetchProducts,
	TableStocks:   fetchStocks,
	TableReviews:  fetchReviews,
	TableSales:    fetchSales,
}

// Extract pulls the relevant rows for one cabinet.
//
// With a delta (changed != nil), only tables present in the map with a
// non-empty id list are queried; everything else is skipped without a scan.
// Without a delta, every table is queried with its freshness predicate.
//
// A query failure on any table fails the whole call: the hash filter
// downstream assumes table-level completeness per invocation, so partial
// data must not flow on.
func (e *Extractor) Extract(ctx context.Context, cabinetID int64, changed ChangedIDs) (*Snapshot, error) {
	snap := &Snapshot{}

	for _, table := range Tables {
		var ids []int64
		if changed != nil {
			ids = changed[table]
			if len(ids) == 0 {
				continue
			}
		}

		if err := tableFetchers[table](ctx, e, cabinetID, ids, snap); err != nil {
			return nil, fmt.Errorf("extracting %s for cabinet %d: %w", table, cabinetID, err)
		}
	}

	if err := e.fetchReferencedNames(ctx, cabinetID, snap); err != nil {
		return nil, fmt.Errorf("resolving product names for cabinet %d: %w", cabinetID, err)
	}

	e.logger.Debug("extraction complete",
		"cabinet_id", cabinetID,
		"delta", changed != nil,
		"rows", snap.Len())
	return snap, nil
}

// productName is the minimal projection for resolving display names.
type productName struct {
	ID   int64   `db:"id"`
	Name *string `db:"name"`
}

// fetchReferencedNames fills snap.ProductNames with names for product ids
// that order/stock/review/sale rows reference but whose product row is not
// in the snapshot, so those rows render the same text regardless of what the
// delta contained. The active predicate mirrors fetchProducts: an inactive
// product stays nameless in every mode.
func (e *Extractor) fetchReferencedNames(ctx context.Context, cabinetID int64, snap *Snapshot) error {
	have := make(map[int64]struct{}, len(snap.Products))
	for _, p := range snap.Products {
		have[p.ID] = struct{}{}
	}

	var missing []int64
	refer := func(id int64) {
		if _, ok := have[id]; ok {
			return
		}
		have[id] = struct{}{}
		missing = append(missing, id)
	}
	for _, o := range snap.Orders {
		refer(o.ProductID)
	}
	for _, st := range snap.Stocks {
		refer(st.ProductID)
	}
	for _, r := range snap.Reviews {
		refer(r.ProductID)
	}
	for _, s := range snap.Sales {
		refer(s.ProductID)
	}
	if len(missing) == 0 {
		return nil
	}

	rows, err := e.pool.Query(ctx, `
		SELECT id, name
		FROM products
		WHERE cabinet_id = $1 AND active AND id = ANY($2)`, cabinetID, missing)
	if err != nil {
		return fmt.Errorf("querying product names: %w", err)
	}
	resolved, err := pgx.CollectRows(rows, pgx.RowToStructByName[productName])
	if err != nil {
		return fmt.Errorf("scanning product names: %w", err)
	}
	if len(resolved) == 0 {
		return nil
	}

	snap.ProductNames = make(map[int64]string, len(resolved))
	for _, p := range resolved {
		if p.Name != nil && *p.Name != "" {
			snap.ProductNames[p.ID] = *p.Name
		}
	}
	return nil
}

// freshSince returns the lower bound for time-windowed tables.
func (e *Extractor) freshSince() time.Time {
	return time.Now().Add(-e.window)
}

func fetchOrders(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error {
	query := `
		SELECT id, cabinet_id, product_id, size, price, status, ordered_at
		FROM orders
		WHERE cabinet_id = $1 AND ordered_at >= $2`
	args := []any{cabinetID, e.freshSince()}
	if ids != nil {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, pgx.RowToStructByName[Order])
	if err != nil {
		return fmt.Errorf("scanning orders: %w", err)
	}
	snap.Orders = orders
	return nil
}

func fetchProducts(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error {
	query := `
		SELECT id, cabinet_id, name, brand, category, price, rating, review_count, active
		FROM products
		WHERE cabinet_id = $1 AND active`
	args := []any{cabinetID}
	if ids != nil {
		query += ` AND id = ANY($2)`
		args = append(args, ids)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return fmt.Errorf("scanning products: %w", err)
	}
	snap.Products = products
	return nil
}

func fetchStocks(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error {
	query := `
		SELECT id, cabinet_id, product_id, size, warehouse_name, quantity
		FROM stocks
		WHERE cabinet_id = $1 AND quantity > 0`
	args := []any{cabinetID}
	if ids != nil {
		query += ` AND id = ANY($2)`
		args = append(args, ids)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying stocks: %w", err)
	}
	stocks, err := pgx.CollectRows(rows, pgx.RowToStructByName[Stock])
	if err != nil {
		return fmt.Errorf("scanning stocks: %w", err)
	}
	snap.Stocks = stocks
	return nil
}

func fetchReviews(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error {
	query := `
		SELECT id, cabinet_id, product_id, rating, text, created_at
		FROM reviews
		WHERE cabinet_id = $1 AND created_at >= $2`
	args := []any{cabinetID, e.freshSince()}
	if ids != nil {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, pgx.RowToStructByName[Review])
	if err != nil {
		return fmt.Errorf("scanning reviews: %w", err)
	}
	snap.Reviews = reviews
	return nil
}

func fetchSales(ctx context.Context, e *Extractor, cabinetID int64, ids []int64, snap *Snapshot) error {
	query := `
		SELECT id, cabinet_id, product_id, sale_type, price, sold_at
		FROM sales
		WHERE cabinet_id = $1 AND sold_at >= $2`
	args := []any{cabinetID, e.freshSince()}
	if ids != nil {
		query += ` AND id = ANY($3)`
		args = append(args, ids)
	}

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying sales: %w", err)
	}
	sales, err := pgx.CollectRows(rows, pgx.RowToStructByName[Sale])
	if err != nil {
		return fmt.Errorf("scanning sales: %w", err)
	}
	snap.Sales = sales
	return nil
}
