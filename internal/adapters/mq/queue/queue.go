// Package queue defines the contract for handing queue item IDs to the
// analysis dispatchers. The store remains the source of truth; only item
// references flow through here.
package queue

import (
	"context"
	"sync"

	"github.com/mazdak/triaged/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10_000
)

// Queue provides non-blocking enqueue and channel-based dequeue of item IDs.
type Queue interface {
	// Enqueue adds an item reference. Returns false when the queue is full
	// or closed.
	Enqueue(ctx context.Context, id string) bool

	// Dequeue returns a channel delivering item IDs as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan string

	// Len returns the current number of pending references.
	Len(ctx context.Context) int

	// Close stops the queue; no new references are accepted afterwards.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	refs     chan string
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.refs = make(chan string, q.capacity)
	return q
}

// Enqueue adds an item reference.
func (q *InMemoryQueue) Enqueue(ctx context.Context, id string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}
	select {
	case q.refs <- id:
		metrics.UpdateDispatchQueueSize(len(q.refs))
		return true
	case <-ctx.Done():
		return false
	default:
		metrics.RecordDispatchQueueFull()
		return false
	}
}

// Dequeue returns a channel delivering item IDs.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for id := range q.refs {
			select {
			case out <- id:
				metrics.UpdateDispatchQueueSize(len(q.refs))
			case <-ctx.Done():
				q.requeue(id)
				return
			}
		}
	}()
	return out
}

// requeue returns an ID a cancelled reader pulled but never delivered.
// The reference is lost only when the queue has already closed or filled
// back up in the meantime.
func (q *InMemoryQueue) requeue(id string) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return
	}
	select {
	case q.refs <- id:
	default:
	}
}

// Len returns the current number of pending references.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.refs)
}

// Close stops the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.refs)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
