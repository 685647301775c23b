// Package api provides the HTTP surface of selldesk.
//
// Endpoints:
//
//	POST /api/index              submit an indexing run (fire-and-forget)
//	GET  /api/index/status       per-cabinet indexing state
//	POST /api/enrich             prompt enrichment for the chat path
//	GET  /health                 liveness probe
//	GET  /ready                  readiness probe (DB ping)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: logging and recovery middleware
//   - health.go: health check endpoints
//   - indexing.go: indexing trigger and status endpoints
//   - enrich.go: prompt enrichment endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/selldesk/internal/index"
	"github.com/koopa0/selldesk/internal/log"
	"github.com/koopa0/selldesk/internal/search"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the selldesk API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	indexing *IndexingHandler
	enrich   *EnrichHandler
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(pool *pgxpool.Pool, submitter Submitter, tracker StatusReader, enricher *search.Enricher, logger log.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(pool, logger),
		indexing: NewIndexingHandler(submitter, tracker, logger),
		enrich:   NewEnrichHandler(enricher, logger),
	}

	s.health.RegisterRoutes(mux)
	s.indexing.RegisterRoutes(mux)
	s.enrich.RegisterRoutes(mux)

	return s
}

// Submitter enqueues indexing runs. Satisfied by *index.Pool.
type Submitter interface {
	Submit(req index.Request) error
}

// StatusReader reports per-cabinet indexing state. Satisfied by *index.Tracker.
type StatusReader interface {
	Get(ctx context.Context, cabinetID int64) (*index.StatusRecord, error)
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler.
func (s *Server) Handler() http.Handler {
	return chain(s.mux, recovery(s.logger), requestLogging(s.logger))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
