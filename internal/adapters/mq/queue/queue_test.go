package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/cpboard/internal/pipeline"
)

func req(id string) Request {
	return Request{RunID: id, Cohort: "cse", Mode: pipeline.ModeFull}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, req("run1")); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.RunID != "run1" {
		t.Errorf("expected run1, got %v", got.RunID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"run1", "run2"} {
		if err := q.Enqueue(ctx, req(id)); err != nil {
			t.Fatalf("expected enqueue to succeed: %v", err)
		}
	}
	if err := q.Enqueue(ctx, req("run3")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := NewInMemoryQueue().Enqueue(cctx, req("run4")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 5, 10
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(ctx, req(fmt.Sprintf("p%d-%d", p, i))); err != nil {
					t.Errorf("enqueue failed: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	seen := make(map[string]bool)
	for r := range q.Dequeue(ctx) {
		if seen[r.RunID] {
			t.Errorf("request %s delivered twice", r.RunID)
		}
		seen[r.RunID] = true
	}
	if len(seen) != producers*perProducer {
		t.Errorf("expected %d requests, got %d", producers*perProducer, len(seen))
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if err := q.Enqueue(ctx, req("run1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := q.Enqueue(ctx, req("run2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var drained []string
	for r := range q.Dequeue(ctx) {
		drained = append(drained, r.RunID)
	}
	if len(drained) != 1 || drained[0] != "run1" {
		t.Errorf("expected queued request to be delivered after close, got %v", drained)
	}
}
