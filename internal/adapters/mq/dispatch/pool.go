package dispatch

import (
	"context"
	"strconv"

	"github.com/mazdak/triaged/internal/domain/inflight"
	"github.com/mazdak/triaged/pkg/logger"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Pool manages the fixed-size set of dispatchers. Its size is the
// concurrency bound on analysis runs.
type Pool struct {
	dispatchers []*Dispatcher

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of size dispatchers sharing one in-flight tracker.
func NewPool(size int, source Source, store Store, runner Runner, tracker inflight.Tracker, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultConcurrency
	}
	p := &Pool{
		dispatchers: make([]*Dispatcher, size),
		shutdown:    make(chan struct{}),
		logger:      logger.Get().Named("dispatch-pool"),
	}
	for i := 0; i < size; i++ {
		named := append([]Option{WithName("dispatcher-" + strconv.Itoa(i))}, opts...)
		p.dispatchers[i] = NewDispatcher(source, store, runner, tracker, named...)
	}
	metrics.UpdateDispatcherCount(size)
	return p
}

// Start launches all dispatchers.
func (p *Pool) Start(ctx context.Context) {
	for _, d := range p.dispatchers {
		go d.Run(ctx)
	}
}

// Stop signals all dispatchers and waits briefly for each to finish.
func (p *Pool) Stop() {
	select {
	case <-p.shutdown:
		return
	default:
		close(p.shutdown)
	}
	for _, d := range p.dispatchers {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchShutdownWait)
		_ = d.Shutdown(ctx)
		cancel()
	}
}

// Shutdown gracefully drains the pool: the source is closed first so no
// new items arrive, then each dispatcher finishes its current item.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := any(p.dispatchers[0].source).(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing dispatch source", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, d := range p.dispatchers {
		if err := d.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "dispatcher shutdown timed out", logger.Int("dispatcher", i))
		}
	}
	return nil
}
