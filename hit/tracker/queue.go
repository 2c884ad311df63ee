package tracker

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned when work is submitted to a Queue which was closed.
var ErrQueueClosed = errors.New("queue is closed")

type task struct {
	fn   func()
	done chan struct{}
}

// Queue is a serial execution context: submitted functions run one after another on a single goroutine,
// in submission order. It is owned by whoever created it; there is no process-wide instance.
//
// A function running on the Queue must not submit to the same Queue, that would deadlock.
type Queue struct {
	tasks     chan task
	stopped   chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewQueue creates a Queue and starts its goroutine. Close stops it.
func NewQueue() *Queue {
	q := &Queue{
		tasks:   make(chan task),
		stopped: make(chan struct{}),
	}

	go q.run()

	return q
}

func (q *Queue) run() {
	defer close(q.stopped)

	for t := range q.tasks {
		t.fn()
		close(t.done)
	}
}

// Do runs fn on the Queue and waits until it returned.
//
// If ctx is done before fn was accepted, fn never runs. If ctx is done while fn is running or waiting
// to run, Do returns the context error but fn still runs to completion on the Queue.
func (q *Queue) Do(ctx context.Context, fn func()) error {
	q.mu.RLock()

	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}

	t := task{fn: fn, done: make(chan struct{})}

	select {
	case q.tasks <- t:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further work, waits for accepted work to finish and stops the goroutine.
// Closing a closed Queue is a no-op.
func (q *Queue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()
	})

	<-q.stopped

	return nil
}
