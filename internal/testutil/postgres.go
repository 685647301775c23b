// Package testutil provides shared testing utilities for the selldesk
// project: a disposable PostgreSQL instance with pgvector, pre-loaded with
// the rag schema and the source tables the extractor reads.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// sourceTablesSQL creates the source-of-truth tables owned by the upstream
// sync job in production. The indexer only reads them, so they live here
// rather than in db/migrations.
const sourceTablesSQL = `
CREATE TABLE orders (
    id BIGSERIAL PRIMARY KEY,
    cabinet_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    size TEXT,
    price DOUBLE PRECISION NOT NULL DEFAULT 0,
    status TEXT,
    ordered_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE products (
    id BIGSERIAL PRIMARY KEY,
    cabinet_id BIGINT NOT NULL,
    name TEXT,
    brand TEXT,
    category TEXT,
    price DOUBLE PRECISION NOT NULL DEFAULT 0,
    rating DOUBLE PRECISION NOT NULL DEFAULT 0,
    review_count INT NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT true,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE stocks (
    id BIGSERIAL PRIMARY KEY,
    cabinet_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    size TEXT,
    warehouse_name TEXT,
    quantity INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE reviews (
    id BIGSERIAL PRIMARY KEY,
    cabinet_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    rating INT NOT NULL DEFAULT 0,
    text TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE sales (
    id BIGSERIAL PRIMARY KEY,
    cabinet_id BIGINT NOT NULL,
    product_id BIGINT NOT NULL,
    sale_type TEXT,
    price DOUBLE PRECISION NOT NULL DEFAULT 0,
    sold_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// SetupTestDB creates a PostgreSQL container with pgvector, applies the rag
// migrations and the source tables, and returns a ready connection pool.
// The returned cleanup terminates the container.
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("selldesk_test"),
		postgres.WithUsername("selldesk_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(context.Background())
	}
	return pool, cleanup
}

// applySchema runs the rag migration file directly plus the test-only
// source tables.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := findProjectRoot()
	if err != nil {
		return err
	}

	migrationPath := filepath.Join(root, "db/migrations/000001_create_rag_tables.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath) // #nosec G304 -- fixed path under project root
	if err != nil {
		return fmt.Errorf("reading migration: %w", err)
	}

	if _, err := pool.Exec(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("executing rag migration: %w", err)
	}
	if _, err := pool.Exec(ctx, sourceTablesSQL); err != nil {
		return fmt.Errorf("creating source tables: %w", err)
	}
	return nil
}

// findProjectRoot walks up from this file until it finds go.mod, so tests
// run from any package directory.
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current file path")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find project root (go.mod)")
		}
		dir = parent
	}
}
