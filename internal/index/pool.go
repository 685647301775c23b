package index

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull indicates the task queue is at capacity.
	ErrQueueFull = errors.New("indexing queue full")

	// ErrPoolClosed indicates the pool has been shut down.
	ErrPoolClosed = errors.New("indexing pool closed")
)

// Runner executes one indexing run. Satisfied by *Service.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Pool executes indexing runs on a fixed set of workers.
//
// Submission is fire-and-forget, matching the upstream sync job's trigger
// semantics: the submitter has no return channel beyond the stored index
// status and the logged result. Per-cabinet exclusion comes from the
// tracker's TryStart inside the run, so two queued requests for the same
// cabinet resolve to one run and one "already in progress" no-op, while
// different cabinets run fully in parallel.
type Pool struct {
	runner Runner
	logger *slog.Logger
	tasks  chan Request
	group  *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewPool starts workers goroutines processing submitted requests. Call
// Close to drain and stop them.
func NewPool(ctx context.Context, runner Runner, workers, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers * 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pool{
		runner: runner,
		logger: logger,
		tasks:  make(chan Request, queueSize),
	}

	group, ctx := errgroup.WithContext(ctx)
	p.group = group
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			return p.work(ctx)
		})
	}

	return p
}

func (p *Pool) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-p.tasks:
			if !ok {
				return nil
			}
			p.execute(ctx, req)
		}
	}
}

func (p *Pool) execute(ctx context.Context, req Request) {
	result, err := p.runner.Run(ctx, req)
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		p.logger.Info("indexing skipped, run already in progress", "cabinet_id", req.CabinetID)
	case err != nil:
		p.logger.Error("indexing task failed", "cabinet_id", req.CabinetID, "error", err)
	default:
		p.logger.Debug("indexing task finished",
			"cabinet_id", req.CabinetID,
			"status", result.Status,
			"total_chunks", result.TotalChunks)
	}
}

// Submit enqueues a request without blocking. A full queue is reported to
// the caller rather than queued indefinitely; the upstream scheduler owns
// retry policy.
func (p *Pool) Submit(req Request) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting work, drains the queue, and waits for workers to
// finish. Safe to call once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	if err := p.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
