// Package dispatch runs the bounded pool of analysis dispatchers. The pool
// size is the admission semaphore: at most that many analysis runs execute
// concurrently, and the in-flight tracker guarantees at most one live run
// per queue item.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mazdak/triaged/internal/analysis"
	"github.com/mazdak/triaged/internal/domain/inflight"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/logger"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Default dispatch configuration constants.
const (
	DefaultConcurrency   = 3 // reflects the rate-limited reasoning provider
	defaultMaxAttempts   = 2 // invalid-result reruns before the item errors out
	dispatchShutdownWait = 5 * time.Second
	poolShutdownTimeout  = 30 * time.Second
)

// Runner executes one full analysis for an event.
type Runner interface {
	Run(ctx context.Context, event model.PerceivedEvent) (model.AnalysisResult, error)
}

// Source delivers queue item IDs to dispatchers and accepts requeues.
type Source interface {
	Dequeue(ctx context.Context) <-chan string
	Enqueue(ctx context.Context, id string) bool
}

// Store is the slice of the repository the dispatcher needs.
type Store interface {
	Get(ctx context.Context, id string) (model.QueueItem, error)
	Transition(ctx context.Context, id string, from, to model.Status, mutate func(*model.QueueItem)) error
	Update(ctx context.Context, id string, mutate func(*model.QueueItem)) error
}

// Dispatcher consumes item IDs and drives each through one analysis run
// and the resulting state machine transition.
type Dispatcher struct {
	source    Source
	store     Store
	runner    Runner
	tracker   inflight.Tracker
	name      string
	autoApply int
	maxTries  int

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewDispatcher creates a dispatcher with configuration options.
func NewDispatcher(source Source, store Store, runner Runner, tracker inflight.Tracker, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source:    source,
		store:     store,
		runner:    runner,
		tracker:   tracker,
		name:      "dispatcher",
		autoApply: DefaultAutoApplyThreshold,
		maxTries:  defaultMaxAttempts,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.name != "dispatcher" {
		d.logger = d.logger.Named(d.name)
	}
	return d
}

// DefaultAutoApplyThreshold is the confidence at or above which a valid
// result is applied without human review.
const DefaultAutoApplyThreshold = 85

// Run consumes item IDs until ctx is canceled or the source closes.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)

	ids := d.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.shutdown:
			return
		case id, ok := <-ids:
			if !ok {
				return
			}
			if err := d.process(ctx, id); err != nil {
				d.logger.Error(ctx, "dispatch failed", logger.String("item", id), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the dispatcher, waiting for the current item to finish.
// Safe to call more than once.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.shutdownOnce.Do(func() { close(d.shutdown) })
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		d.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// process drives one queue item through a single analysis attempt.
func (d *Dispatcher) process(ctx context.Context, id string) error {
	// At most one in-flight run per item. A reference that races an
	// already-running analysis is dropped; reanalysis re-enqueues later.
	if !d.tracker.Acquire(ctx, id) {
		d.logger.Debug(ctx, "item already in flight; dropping reference", logger.String("item", id))
		return nil
	}
	defer d.tracker.Release(ctx, id)
	metrics.UpdateAnalysesInFlight(int(d.tracker.Size()))

	item, err := d.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load item %s: %w", id, err)
	}
	if err := d.markAnalyzing(ctx, item); err != nil {
		return err
	}

	result, runErr := d.runner.Run(ctx, item.Event)
	if runErr != nil {
		return d.fail(ctx, id, runErr)
	}
	if !result.Valid() {
		return d.handleInvalid(ctx, id, result)
	}
	return d.complete(ctx, id, result)
}

// markAnalyzing moves the item into ANALYZING from any status that admits
// a run: QUEUED on first dispatch, ERROR on reanalysis. An item already
// ANALYZING (an invalid-result rerun) stays put.
func (d *Dispatcher) markAnalyzing(ctx context.Context, item model.QueueItem) error {
	switch item.Status {
	case model.StatusQueued, model.StatusError:
		return d.store.Transition(ctx, item.ID, item.Status, model.StatusAnalyzing, func(it *model.QueueItem) {
			if item.Status == model.StatusError {
				// Reanalysis starts clean: no memory of the failed run.
				it.Attempts = 0
				it.LastError = ""
			}
		})
	case model.StatusAnalyzing:
		return nil
	default:
		return fmt.Errorf("%s: item in status %s is not dispatchable", item.ID, item.Status)
	}
}

// handleInvalid keeps the item in ANALYZING so a retry can be scheduled;
// the invalid result is logged, never surfaced. After the attempt budget
// the item errors out.
func (d *Dispatcher) handleInvalid(ctx context.Context, id string, result model.AnalysisResult) error {
	metrics.RecordInvalidResult()
	d.logger.Warn(ctx, "analysis produced invalid result; item stays in analyzing",
		logger.String("item", id),
		logger.Int("confidence", result.Confidence),
		logger.String("action", result.Action),
	)

	attempts := 0
	if err := d.store.Update(ctx, id, func(it *model.QueueItem) {
		it.Attempts++
		attempts = it.Attempts
	}); err != nil {
		return err
	}
	if attempts >= d.maxTries {
		return d.fail(ctx, id, analysis.ErrInvalidResult)
	}
	if !d.source.Enqueue(ctx, id) {
		return d.fail(ctx, id, fmt.Errorf("%w: requeue rejected", analysis.ErrInvalidResult))
	}
	return nil
}

// complete applies the terminal transition for a valid result.
func (d *Dispatcher) complete(ctx context.Context, id string, result model.AnalysisResult) error {
	if result.Confidence >= d.autoApply {
		metrics.RecordAutoApplied()
		return d.store.Transition(ctx, id, model.StatusAnalyzing, model.StatusProcessed, func(it *model.QueueItem) {
			it.Result = &result
			it.Resolution = model.ResolutionAutoApplied
			it.LastError = ""
		})
	}
	metrics.RecordAwaitingReview()
	return d.store.Transition(ctx, id, model.StatusAnalyzing, model.StatusAwaitingReview, func(it *model.QueueItem) {
		it.Result = &result
		it.LastError = ""
	})
}

// fail moves the item to ERROR carrying the failure for the review surface.
func (d *Dispatcher) fail(ctx context.Context, id string, cause error) error {
	metrics.RecordAnalysisError()
	d.logger.Error(ctx, "analysis failed; item moved to error", logger.String("item", id), logger.Error(cause))
	if err := d.store.Transition(ctx, id, model.StatusAnalyzing, model.StatusError, func(it *model.QueueItem) {
		it.LastError = cause.Error()
	}); err != nil {
		return fmt.Errorf("transition %s to error: %w (cause: %v)", id, err, cause)
	}
	return nil
}
