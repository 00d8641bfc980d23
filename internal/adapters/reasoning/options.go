package reasoning

import "time"

// ProviderOption applies a configuration option to the InMemoryProvider.
type ProviderOption func(*InMemoryProvider)

// WithLatencyRange sets the simulated provider latency bounds.
func WithLatencyRange(minLatency, maxLatency time.Duration) ProviderOption {
	return func(p *InMemoryProvider) {
		if minLatency > 0 && maxLatency > minLatency {
			p.minLatency = minLatency
			p.maxLatency = maxLatency
		}
	}
}

// RetryOption applies a configuration option to the Retrying decorator.
type RetryOption func(*Retrying)

// WithMaxTries bounds rate-limit retries per pass.
func WithMaxTries(n uint) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.maxTries = n
		}
	}
}

// WithInitialInterval sets the first backoff interval.
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d > 0 {
			r.initialInterval = d
		}
	}
}
