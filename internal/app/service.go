// Package service wires the analysis engine together: store, dispatch
// queue, dispatcher pool, context cache, and the reasoning provider. It
// implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mazdak/triaged/internal/adapters/contextcache"
	dispatchpool "github.com/mazdak/triaged/internal/adapters/mq/dispatch"
	refqueue "github.com/mazdak/triaged/internal/adapters/mq/queue"
	"github.com/mazdak/triaged/internal/adapters/notesearch"
	"github.com/mazdak/triaged/internal/adapters/reasoning"
	repository "github.com/mazdak/triaged/internal/adapters/repository"
	"github.com/mazdak/triaged/internal/analysis"
	"github.com/mazdak/triaged/internal/domain/inflight"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/internal/domain/policy"
	"github.com/mazdak/triaged/pkg/logger"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Service owns the analysis engine components and their lifecycle.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	cache        *contextcache.Cache
	searcher     *notesearch.InMemorySearcher
	provider     reasoning.Provider
	orchestrator *analysis.Orchestrator
	queue        refqueue.Queue
	pool         *dispatchpool.Pool
	runs         inflight.Tracker // one live analysis per item
	seen         inflight.Tracker // ingestion idempotency

	// Configuration
	concurrency     int
	queueSize       int
	dedupeSize      int
	maxPasses       int
	stopBar         int
	ephemeralBar    int
	epsilon         int
	autoApply       int
	cacheTTL        time.Duration
	cacheMaxEntries int
	contextBudget   int
	searchWorkers   int
	passTimeout     time.Duration
	providerTries   uint
	providerMinLat  time.Duration
	providerMaxLat  time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		concurrency:     dispatchpool.DefaultConcurrency,
		queueSize:       10_000,
		dedupeSize:      50_000,
		maxPasses:       policy.DefaultMaxPasses,
		stopBar:         policy.DefaultStopBar,
		ephemeralBar:    policy.DefaultEphemeralBar,
		epsilon:         5,
		autoApply:       dispatchpool.DefaultAutoApplyThreshold,
		cacheTTL:        60 * time.Second,
		cacheMaxEntries: 100,
		contextBudget:   5,
		searchWorkers:   8,
		passTimeout:     30 * time.Second,
		providerTries:   3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting analysis service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.store = repository.NewInMemoryStore()
	s.searcher = notesearch.NewInMemorySearcher(
		notesearch.WithWorkerCount(s.searchWorkers),
	)
	s.cache = contextcache.New(s.searcher,
		contextcache.WithTTL(s.cacheTTL),
		contextcache.WithMaxEntries(s.cacheMaxEntries),
	)
	s.cache.StartSweeper(runCtx, s.cacheTTL)

	if s.provider == nil {
		var providerOpts []reasoning.ProviderOption
		if s.providerMinLat > 0 && s.providerMaxLat > s.providerMinLat {
			providerOpts = append(providerOpts, reasoning.WithLatencyRange(s.providerMinLat, s.providerMaxLat))
		}
		s.provider = reasoning.NewInMemoryProvider(providerOpts...)
	}
	retrying := reasoning.NewRetrying(s.provider, reasoning.WithMaxTries(s.providerTries))

	pol := policy.New(
		policy.WithMaxPasses(s.maxPasses),
		policy.WithStopBar(s.stopBar),
		policy.WithEphemeralBar(s.ephemeralBar),
	)
	s.orchestrator = analysis.New(retrying, s.cache, pol,
		analysis.WithEpsilon(s.epsilon),
		analysis.WithPassTimeout(s.passTimeout),
		analysis.WithContextBudget(s.contextBudget),
	)

	s.runs = inflight.New()
	s.seen = inflight.New(inflight.WithMaxSize(s.dedupeSize))
	s.queue = refqueue.NewInMemoryQueue(refqueue.WithCapacity(s.queueSize))
	s.pool = dispatchpool.NewPool(s.concurrency, s.queue, s.store, s.orchestrator, s.runs,
		dispatchpool.WithAutoApplyThreshold(s.autoApply),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("concurrency", s.concurrency),
		logger.Int("maxPasses", s.maxPasses),
		logger.Int("autoApply", s.autoApply),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping analysis service...")
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.started = false
	s.logger.Info(ctx, "analysis service stopped")
}

// LoadNotes replaces the searchable note corpus and invalidates the cache,
// which is exactly what an index rebuild does.
func (s *Service) LoadNotes(ctx context.Context, notes []notesearch.Note) {
	s.searcher.Load(notes)
	s.cache.InvalidateAll()
	s.logger.Info(ctx, "note corpus loaded", logger.Int("notes", len(notes)))
}

// Ingest accepts a perceived event, creates its queue item, and schedules
// analysis. The returned bool reports whether the event was a duplicate.
func (s *Service) Ingest(ctx context.Context, event model.PerceivedEvent) (string, bool, error) {
	if event.ID == "" {
		return "", false, ErrMissingEventID
	}
	if !s.seen.Acquire(ctx, event.ID) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event dropped", logger.String("event", event.ID))
		return "", true, nil
	}

	item := model.QueueItem{
		ID:     uuid.NewString(),
		Event:  event,
		Status: model.StatusQueued,
	}
	if err := s.store.Create(ctx, item); err != nil {
		s.seen.Release(ctx, event.ID)
		return "", false, fmt.Errorf("create queue item: %w", err)
	}
	if !s.queue.Enqueue(ctx, item.ID) {
		s.seen.Release(ctx, event.ID)
		return "", false, ErrBackpressure
	}
	metrics.RecordEventIngested()
	return item.ID, false, nil
}

// Approve settles an awaiting-review item. A non-empty override marks the
// resolution as modified rather than approved.
func (s *Service) Approve(ctx context.Context, id, override string) error {
	resolution := model.ResolutionManualApproved
	if override != "" {
		resolution = model.ResolutionManualModified
	}
	return s.store.Transition(ctx, id, model.StatusAwaitingReview, model.StatusProcessed, func(it *model.QueueItem) {
		it.Resolution = resolution
		if override != "" && it.Result != nil {
			modified := *it.Result
			modified.Action = override
			it.Result = &modified
		}
	})
}

// Reject settles an awaiting-review item as rejected.
func (s *Service) Reject(ctx context.Context, id, reason string) error {
	return s.store.Transition(ctx, id, model.StatusAwaitingReview, model.StatusProcessed, func(it *model.QueueItem) {
		it.Resolution = model.ResolutionManualRejected
		if reason != "" {
			it.LastError = reason
		}
	})
}

// Skip settles an awaiting-review item without acting on it.
func (s *Service) Skip(ctx context.Context, id string) error {
	return s.store.Transition(ctx, id, model.StatusAwaitingReview, model.StatusProcessed, func(it *model.QueueItem) {
		it.Resolution = model.ResolutionManualSkipped
	})
}

// Reanalyze schedules a fresh run for an errored item. The new run starts
// at the lowest tier with no memory of the failed one.
func (s *Service) Reanalyze(ctx context.Context, id string) error {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status != model.StatusError {
		return fmt.Errorf("%w: item is %s", repository.ErrConflict, item.Status)
	}
	if s.runs.Contains(ctx, id) {
		return ErrAlreadyAnalyzing
	}
	if !s.queue.Enqueue(ctx, id) {
		return ErrBackpressure
	}
	return nil
}

// InvalidateContextCache drops all cached context lookups. Called by the
// index rebuild notifier.
func (s *Service) InvalidateContextCache(ctx context.Context) {
	s.cache.InvalidateAll()
	s.logger.Info(ctx, "context cache invalidated")
}

// Item returns one queue item.
func (s *Service) Item(ctx context.Context, id string) (model.QueueItem, error) {
	return s.store.Get(ctx, id)
}

// Items lists queue items, optionally filtered by status.
func (s *Service) Items(ctx context.Context, status model.Status) ([]model.QueueItem, error) {
	if status == "" {
		return s.store.List(ctx)
	}
	return s.store.ListByStatus(ctx, status)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"concurrency": s.concurrency,
		"max_passes":  s.maxPasses,
		"auto_apply":  s.autoApply,
	}
	if !s.started {
		return stats
	}
	ctx := context.Background()
	stats["dispatch_queue"] = s.queue.Len(ctx)
	stats["in_flight"] = s.runs.Size()
	stats["cache_entries"] = s.cache.Len()
	for status, n := range s.store.CountByStatus(ctx) {
		stats["items_"+string(status)] = n
	}
	return stats
}
