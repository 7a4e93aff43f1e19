package progress

import (
	"context"
	"sync"
	"time"
)

// syncQueue serializes remote writes through a single background worker.
// Rapid consecutive room completions would otherwise race their session
// updates against each other; applying them in enqueue order keeps the
// service's view consistent with the local canonical state. Failures are the
// caller's to log; there is no retry.
type syncQueue struct {
	mu     sync.Mutex
	ops    chan func(context.Context)
	done   chan struct{}
	closed bool
}

const remoteOpTimeout = 15 * time.Second

func newSyncQueue() *syncQueue {
	q := &syncQueue{
		ops:  make(chan func(context.Context), 64),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *syncQueue) run() {
	defer close(q.done)
	for op := range q.ops {
		ctx, cancel := context.WithTimeout(context.Background(), remoteOpTimeout)
		op(ctx)
		cancel()
	}
}

// Enqueue hands an operation to the worker. Fire-and-forget from the caller's
// perspective: a full or closed queue drops the op, matching the no-guarantee
// policy for remote persistence.
func (q *syncQueue) Enqueue(op func(context.Context)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ops <- op:
		return true
	default:
		return false
	}
}

// Flush blocks until every previously enqueued op has run.
func (q *syncQueue) Flush() {
	done := make(chan struct{})
	if !q.Enqueue(func(context.Context) { close(done) }) {
		return
	}
	<-done
}

// Close stops the worker after draining queued ops.
func (q *syncQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ops)
	}
	q.mu.Unlock()
	<-q.done
}
