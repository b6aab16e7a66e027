// Package worker drains the run queue and executes pipeline runs.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/cpboard/internal/pipeline"
	"github.com/okian/cpboard/pkg/logger"
	"github.com/okian/cpboard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 1 // runs are I/O heavy but rate limited per platform
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Request is what workers read off the queue.
type Request = pipeline.Request

// Runner executes one run request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Releaser forgets a pending request key once its run is over, so the same
// work can be requested again.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// ResultFunc observes every finished run, successful or not.
type ResultFunc func(ctx context.Context, req Request, res pipeline.Result, err error)

// Worker processes run requests.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker on top of an in-process queue.
type InMemoryWorker struct {
	queue    Queue
	runner   Runner
	releaser Releaser
	onResult ResultFunc
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			_ = w.process(ctx, req)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs a single request. The key is released before observers see
// the result.
func (w *InMemoryWorker) process(ctx context.Context, req Request) error { //nolint:gocritic // hugeParam: Request travels by value over the channel
	metrics.UpdateWorkersBusy(1)
	defer metrics.UpdateWorkersBusy(-1)

	res, err := w.runner.Run(ctx, req)
	if w.releaser != nil {
		w.releaser.Unrecord(ctx, req.Key())
	}
	if w.onResult != nil {
		w.onResult(ctx, req, res, err)
	}
	if err != nil {
		w.logger.Error(ctx, "run failed",
			logger.String("runID", req.RunID),
			logger.String("cohort", req.Cohort),
			logger.String("mode", string(req.Mode)),
			logger.Error(err),
		)
		return fmt.Errorf("run %s: %w", req.RunID, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers sharing queue and runner.
// Options apply to every worker; names are assigned per worker.
func NewPool(workerCount int, queue Queue, runner Runner, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    queue,
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts,
			WithName("worker-"+strconv.Itoa(i)),
			withProcessedCounter(&pool.processed),
		)
		pool.workers[i] = NewInMemoryWorker(queue, runner, workerOpts...)
	}

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many requests the pool has handled.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop signals every worker and waits a bounded time for each.
func (p *Pool) Stop() {
	for _, worker := range p.workers {
		close(worker.shutdown)
	}
	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue so queued requests drain, then waits for the
// workers to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
