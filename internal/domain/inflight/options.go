package inflight

// Option applies a configuration option to the tracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the tracker; once full, the oldest entry is evicted.
// Zero or negative means unbounded.
func WithMaxSize(size int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = size
	}
}
