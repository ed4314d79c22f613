// Package queue provides an unbounded FIFO queue with a non-blocking pop
// and a readiness channel for consumers that drain multiple queues.
package queue

import "sync"

// Queue is an unbounded FIFO queue safe for concurrent producers and a
// single consumer. Pop never blocks; consumers that want to sleep until
// an item arrives select on Ready.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	ready chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item to the tail of the queue and signals readiness.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	// Non-blocking: one pending signal is enough to wake the consumer,
	// which drains with TryPop until empty.
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the head of the queue.
// Returns the zero value and false if the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}

	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Ready returns a channel that receives a signal when items may be
// available. A signal does not guarantee an item; callers must still
// check TryPop's second return value.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
