// Package inflight tracks membership of in-progress or already-seen IDs.
//
// The service uses two trackers: one enforcing at most one live analysis
// run per queue item, and a bounded one giving ingestion idempotency when
// an adapter delivers the same perceived event twice.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker records IDs and enforces single membership per ID.
type Tracker interface {
	// Acquire atomically records id if absent. It returns true when the
	// caller now holds the id, false when it was already present.
	Acquire(ctx context.Context, id string) bool

	// Release removes id, allowing a later Acquire to succeed.
	Release(ctx context.Context, id string)

	// Contains reports whether id is currently tracked.
	Contains(ctx context.Context, id string) bool

	Size() int64
}

// node is one entry of the eviction list, newest at head.
type node struct {
	id   string
	next *node
}

// inMemoryTracker implements Tracker with a map plus, in bounded mode, a
// linked list evicting the oldest entry once maxSize is reached. Unbounded
// mode (maxSize <= 0) keeps a plain map, which suits the per-item run
// tracker whose size is capped by the dispatcher pool anyway.
type inMemoryTracker struct {
	mu      sync.Mutex
	members map[string]*node
	head    *node
	maxSize int
	size    atomic.Int64
}

// New creates a tracker with configuration options.
func New(opts ...Option) Tracker {
	t := &inMemoryTracker{}
	for _, opt := range opts {
		opt(t)
	}
	t.members = make(map[string]*node)
	return t
}

// Acquire atomically records id if absent.
func (t *inMemoryTracker) Acquire(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.members[id]; exists {
		return false
	}

	if t.maxSize > 0 {
		if len(t.members) >= t.maxSize {
			t.evictOldest()
		}
		n := &node{id: id, next: t.head}
		t.head = n
		t.members[id] = n
	} else {
		t.members[id] = nil
	}
	t.size.Add(1)
	return true
}

// Release removes id from the tracker.
func (t *inMemoryTracker) Release(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, exists := t.members[id]
	if !exists {
		return
	}
	delete(t.members, id)
	t.size.Add(-1)
	if t.maxSize <= 0 || n == nil {
		return
	}

	// Unlink from the eviction list.
	if t.head == n {
		t.head = n.next
		return
	}
	for cur := t.head; cur != nil; cur = cur.next {
		if cur.next == n {
			cur.next = n.next
			return
		}
	}
}

// Contains reports whether id is currently tracked.
func (t *inMemoryTracker) Contains(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.members[id]
	return exists
}

// evictOldest drops the tail of the list. Caller holds t.mu.
func (t *inMemoryTracker) evictOldest() {
	if t.head == nil {
		return
	}
	if t.head.next == nil {
		delete(t.members, t.head.id)
		t.head = nil
		t.size.Add(-1)
		return
	}
	prev := t.head
	for prev.next.next != nil {
		prev = prev.next
	}
	delete(t.members, prev.next.id)
	prev.next = nil
	t.size.Add(-1)
}

// Size returns the current number of tracked IDs.
func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
