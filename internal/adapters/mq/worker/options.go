package worker

import (
	"context"
	"sync/atomic"

	"github.com/okian/cpboard/internal/pipeline"
	"github.com/okian/cpboard/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReleaser releases each request key once its run finishes.
func WithReleaser(r Releaser) Option {
	return func(w *InMemoryWorker) {
		w.releaser = r
	}
}

// WithResultFunc observes every finished run.
func WithResultFunc(fn ResultFunc) Option {
	return func(w *InMemoryWorker) {
		w.onResult = fn
	}
}

func withProcessedCounter(n *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		prev := w.onResult
		w.onResult = func(ctx context.Context, req Request, res pipeline.Result, err error) {
			n.Add(1)
			if prev != nil {
				prev(ctx, req, res, err)
			}
		}
	}
}
