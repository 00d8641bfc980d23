// Package config defines service configuration structures and loading.
//
// Conventions:
// - Defaults come from New; Load layers an optional YAML file and env vars
//   on top.
// - External errors are wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxPasses bounds the reasoning passes per analysis run.
	MaxPasses int `koanf:"max_passes"`

	// StopConfidence is the stop bar for non-ephemeral content.
	StopConfidence int `koanf:"stop_confidence"`

	// EphemeralStopConfidence is the reduced bar for ephemeral content.
	EphemeralStopConfidence int `koanf:"ephemeral_stop_confidence"`

	// ConvergenceEpsilon is the plateau threshold in percentage points.
	ConvergenceEpsilon int `koanf:"convergence_epsilon"`

	// AutoApplyThreshold is the confidence at or above which results are
	// applied without human review.
	AutoApplyThreshold int `koanf:"auto_apply_threshold"`

	// MaxConcurrentAnalyses bounds simultaneous analysis runs.
	MaxConcurrentAnalyses int `koanf:"max_concurrent_analyses"`

	// DispatchQueueSize bounds the pending item reference queue.
	DispatchQueueSize int `koanf:"dispatch_queue_size"`

	// ContextCacheTTLSeconds is the per-entry cache lifetime.
	ContextCacheTTLSeconds int `koanf:"context_cache_ttl_seconds"`

	// ContextCacheMaxEntries bounds the cache before LRU eviction.
	ContextCacheMaxEntries int `koanf:"context_cache_max_entries"`

	// ContextBudget is the result budget per context search.
	ContextBudget int `koanf:"context_budget"`

	// SearchWorkers bounds the note-search worker pool.
	SearchWorkers int `koanf:"search_workers"`

	// PassTimeoutSeconds bounds each reasoning provider call.
	PassTimeoutSeconds int `koanf:"pass_timeout_seconds"`

	// ProviderMaxTries bounds rate-limit retries per pass.
	ProviderMaxTries int `koanf:"provider_max_tries"`

	// IngestDedupeSize bounds the ingestion idempotency set.
	IngestDedupeSize int `koanf:"ingest_dedupe_size"`

	// ProviderLatencyMinMS and ProviderLatencyMaxMS bound the simulated
	// reasoning latency.
	ProviderLatencyMinMS int `koanf:"provider_latency_min_ms"`
	ProviderLatencyMaxMS int `koanf:"provider_latency_max_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9090",
		MaxPasses:               5,
		StopConfidence:          95,
		EphemeralStopConfidence: 80,
		ConvergenceEpsilon:      5,
		AutoApplyThreshold:      85,
		MaxConcurrentAnalyses:   3,
		DispatchQueueSize:       10_000,
		ContextCacheTTLSeconds:  60,
		ContextCacheMaxEntries:  100,
		ContextBudget:           5,
		SearchWorkers:           8,
		PassTimeoutSeconds:      30,
		ProviderMaxTries:        3,
		IngestDedupeSize:        50_000,
		ProviderLatencyMinMS:    40,
		ProviderLatencyMaxMS:    120,
	}
}

// ContextCacheTTL returns the cache TTL as a duration.
func (c *Config) ContextCacheTTL() time.Duration {
	return time.Duration(c.ContextCacheTTLSeconds) * time.Second
}

// PassTimeout returns the per-pass timeout as a duration.
func (c *Config) PassTimeout() time.Duration {
	return time.Duration(c.PassTimeoutSeconds) * time.Second
}
