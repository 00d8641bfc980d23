package service

import (
	"time"

	"github.com/mazdak/triaged/internal/adapters/reasoning"
	"github.com/mazdak/triaged/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConcurrency bounds simultaneous analysis runs.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithQueueSize bounds the dispatch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the ingestion idempotency set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxPasses bounds the reasoning passes per run.
func WithMaxPasses(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

// WithConfidenceBars sets the standard and ephemeral stop bars.
func WithConfidenceBars(stop, ephemeral int) Option {
	return func(s *Service) {
		if stop > 0 && stop <= 100 {
			s.stopBar = stop
		}
		if ephemeral > 0 && ephemeral <= 100 {
			s.ephemeralBar = ephemeral
		}
	}
}

// WithEpsilon sets the convergence epsilon.
func WithEpsilon(epsilon int) Option {
	return func(s *Service) {
		if epsilon > 0 {
			s.epsilon = epsilon
		}
	}
}

// WithAutoApplyThreshold sets the confidence for unattended application.
func WithAutoApplyThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 && threshold <= 100 {
			s.autoApply = threshold
		}
	}
}

// WithCacheBounds sets the context cache TTL and entry bound.
func WithCacheBounds(ttl time.Duration, maxEntries int) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
		if maxEntries > 0 {
			s.cacheMaxEntries = maxEntries
		}
	}
}

// WithContextBudget sets the result budget per context search.
func WithContextBudget(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.contextBudget = n
		}
	}
}

// WithSearchWorkers bounds the note-search worker pool.
func WithSearchWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.searchWorkers = n
		}
	}
}

// WithPassTimeout bounds each provider call.
func WithPassTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.passTimeout = d
		}
	}
}

// WithProviderTries bounds rate-limit retries per pass.
func WithProviderTries(n uint) Option {
	return func(s *Service) {
		if n > 0 {
			s.providerTries = n
		}
	}
}

// WithProvider injects a reasoning provider, replacing the simulated one.
func WithProvider(p reasoning.Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithProviderLatencyRange bounds the simulated provider latency.
func WithProviderLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.providerMinLat = minLatency
			s.providerMaxLat = maxLatency
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
