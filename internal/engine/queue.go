package engine

import (
	"context"
	"sync"
)

// request is a submitted command awaiting execution by the Run loop.
type request struct {
	ctx   context.Context
	cmd   Command
	reply chan reply // buffered, size 1
}

type reply struct {
	res Result
	err error
}

// commandQueue is a thread-safe FIFO queue of submitted commands.
//
// Submit may be called from any goroutine while the Run loop dequeues.
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type commandQueue struct {
	mu     sync.Mutex
	reqs   []request
	closed bool
	signal chan struct{} // Signals request availability (buffered, size 1)
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		reqs:   make([]request, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *commandQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.reqs = append(q.reqs, r)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
// Returns false if the queue is empty.
func (q *commandQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.reqs) == 0 {
		return request{}, false
	}

	r := q.reqs[0]
	// Clear the slot so the reply channel and context can be collected.
	q.reqs[0] = request{}

	if len(q.reqs) == 1 {
		q.reqs = q.reqs[:0]
	} else {
		q.reqs = q.reqs[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed once the queue is closed.
func (q *commandQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs)
}

// Drained reports whether the queue is closed and empty.
func (q *commandQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.reqs) == 0
}

// Close signals that no more requests will be enqueued.
func (q *commandQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal) // Wakes all waiters
}
