// Package metrics provides Prometheus metrics for the triaged analysis
// engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Analysis metrics
	analysisPasses     *prometheus.CounterVec   // by tier
	passDuration       *prometheus.HistogramVec // by tier
	escalations        *prometheus.CounterVec   // by target tier
	analysisCompleted  *prometheus.CounterVec   // by stop reason
	passesPerRun       prometheus.Histogram
	analysesInFlight   prometheus.Gauge
	invalidResults     prometheus.Counter
	analysisErrors     prometheus.Counter
	autoApplied        prometheus.Counter
	awaitingReview     prometheus.Counter

	// Provider metrics
	providerLatency *prometheus.HistogramVec // by tier
	providerRetries prometheus.Counter

	// Context cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheEvictions     prometheus.Counter
	cacheInvalidations prometheus.Counter
	cacheSize          prometheus.Gauge

	// Note search metrics
	noteSearches     prometheus.Counter
	noteSearchHits   prometheus.Histogram

	// Queue metrics
	queueTransitions  *prometheus.CounterVec // by from/to
	itemsByStatus     *prometheus.GaugeVec   // by status
	dispatchQueueSize prometheus.Gauge
	dispatchQueueFull prometheus.Counter
	dispatcherCount   prometheus.Gauge

	// Ingestion metrics
	eventsIngested  prometheus.Counter
	eventsDuplicate prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager backed by a custom registry so default Go
// collectors stay out of the scrape.
var (
	customRegistry = prometheus.NewRegistry()             //nolint:gochecknoglobals // singleton registry
	globalManager  *Manager                               //nolint:gochecknoglobals // singleton manager
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "triaged",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
	m.registry.MustRegister(c)
	return c
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
	m.registry.MustRegister(c)
	return c
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
	m.registry.MustRegister(g)
	return g
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
	m.registry.MustRegister(g)
	return g
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
	m.registry.MustRegister(h)
	return h
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
	m.registry.MustRegister(h)
	return h
}

func (m *Manager) initializeMetrics() {
	m.analysisPasses = m.counterVec("analysis_passes_total", "Reasoning passes executed, by tier.", "tier")
	m.passDuration = m.histogramVec("pass_duration_seconds", "Wall-clock duration of one pass, by tier.", m.histogramBuckets, "tier")
	m.escalations = m.counterVec("escalations_total", "Tier escalations, by target tier.", "tier")
	m.analysisCompleted = m.counterVec("analyses_completed_total", "Completed analysis runs, by stop reason.", "stop_reason")
	m.passesPerRun = m.histogram("passes_per_run", "Passes executed per completed run.", []float64{1, 2, 3, 4, 5})
	m.analysesInFlight = m.gauge("analyses_in_flight", "Analysis runs currently executing.")
	m.invalidResults = m.counter("invalid_results_total", "Runs whose result violated the result invariant.")
	m.analysisErrors = m.counter("analysis_errors_total", "Runs that ended in the error state.")
	m.autoApplied = m.counter("auto_applied_total", "Results applied without human review.")
	m.awaitingReview = m.counter("awaiting_review_total", "Results forwarded to human review.")

	m.providerLatency = m.histogramVec("provider_latency_seconds", "Reasoning provider call latency, by tier.", m.histogramBuckets, "tier")
	m.providerRetries = m.counter("provider_retries_total", "Rate-limit retries against the reasoning provider.")

	m.cacheHits = m.counter("context_cache_hits_total", "Context cache hits.")
	m.cacheMisses = m.counter("context_cache_misses_total", "Context cache misses.")
	m.cacheEvictions = m.counter("context_cache_evictions_total", "Context cache LRU evictions.")
	m.cacheInvalidations = m.counter("context_cache_invalidations_total", "Full cache invalidations after index rebuilds.")
	m.cacheSize = m.gauge("context_cache_entries", "Live context cache entries.")

	m.noteSearches = m.counter("note_searches_total", "Searches executed against the note index.")
	m.noteSearchHits = m.histogram("note_search_matches", "Matches returned per note search.", []float64{0, 1, 2, 4, 8, 16})

	m.queueTransitions = m.counterVec("queue_transitions_total", "Queue state machine transitions.", "from", "to")
	m.itemsByStatus = m.gaugeVec("queue_items", "Queue items by status.", "status")
	m.dispatchQueueSize = m.gauge("dispatch_queue_size", "Pending item references awaiting dispatch.")
	m.dispatchQueueFull = m.counter("dispatch_queue_full_total", "Enqueues rejected because the dispatch queue was full.")
	m.dispatcherCount = m.gauge("dispatchers", "Configured dispatcher pool size.")

	m.eventsIngested = m.counter("events_ingested_total", "Perceived events accepted into the queue.")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Perceived events dropped as duplicates.")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests, by endpoint, method, and status.", "endpoint", "method", "status")
	m.httpRequestDuration = m.histogramVec("http_request_duration_seconds", "HTTP request latency, by endpoint.", m.histogramBuckets, "endpoint")
}

// Handler exposes the custom registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Package-level helpers delegating to the global manager.

func RecordAnalysisPass(tier string, seconds float64) {
	globalManager.analysisPasses.WithLabelValues(tier).Inc()
	globalManager.passDuration.WithLabelValues(tier).Observe(seconds)
}

func RecordEscalation(tier string) { globalManager.escalations.WithLabelValues(tier).Inc() }

func RecordAnalysisComplete(stopReason string, passes int) {
	globalManager.analysisCompleted.WithLabelValues(stopReason).Inc()
	globalManager.passesPerRun.Observe(float64(passes))
}

func UpdateAnalysesInFlight(n int) { globalManager.analysesInFlight.Set(float64(n)) }

func RecordInvalidResult() { globalManager.invalidResults.Inc() }

func RecordAnalysisError() { globalManager.analysisErrors.Inc() }

func RecordAutoApplied() { globalManager.autoApplied.Inc() }

func RecordAwaitingReview() { globalManager.awaitingReview.Inc() }

func RecordProviderLatency(tier string, seconds float64) {
	globalManager.providerLatency.WithLabelValues(tier).Observe(seconds)
}

func RecordProviderRetry() { globalManager.providerRetries.Inc() }

func RecordContextCacheHit() { globalManager.cacheHits.Inc() }

func RecordContextCacheMiss() { globalManager.cacheMisses.Inc() }

func RecordContextCacheEviction() { globalManager.cacheEvictions.Inc() }

func RecordContextCacheInvalidation() { globalManager.cacheInvalidations.Inc() }

func UpdateContextCacheSize(n int) { globalManager.cacheSize.Set(float64(n)) }

func RecordNoteSearch(matches int) {
	globalManager.noteSearches.Inc()
	globalManager.noteSearchHits.Observe(float64(matches))
}

func RecordQueueTransition(from, to string) {
	globalManager.queueTransitions.WithLabelValues(from, to).Inc()
}

func UpdateQueueItemsByStatus(status string, n int) {
	globalManager.itemsByStatus.WithLabelValues(status).Set(float64(n))
}

func UpdateDispatchQueueSize(n int) { globalManager.dispatchQueueSize.Set(float64(n)) }

func RecordDispatchQueueFull() { globalManager.dispatchQueueFull.Inc() }

func UpdateDispatcherCount(n int) { globalManager.dispatcherCount.Set(float64(n)) }

func RecordEventIngested() { globalManager.eventsIngested.Inc() }

func RecordEventDuplicate() { globalManager.eventsDuplicate.Inc() }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPDuration(endpoint string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
