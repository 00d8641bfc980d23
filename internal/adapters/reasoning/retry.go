package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/mazdak/triaged/internal/domain/model"
	"github.com/mazdak/triaged/pkg/metrics"
)

// Default retry configuration constants.
const (
	defaultMaxTries        = 3
	defaultInitialInterval = 200 * time.Millisecond
)

// Retrying decorates a Provider with bounded exponential backoff for
// rate-limited calls. Exhausted retries surface as ErrProvider so the
// orchestrator's transient-failure handling takes over.
type Retrying struct {
	inner           Provider
	maxTries        uint
	initialInterval time.Duration
}

// NewRetrying wraps a provider with retry behavior.
func NewRetrying(inner Provider, opts ...RetryOption) *Retrying {
	r := &Retrying{
		inner:           inner,
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke calls the wrapped provider, retrying rate limits with backoff.
func (r *Retrying) Invoke(ctx context.Context, tier model.Tier, pc PromptContext) (Judgment, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.initialInterval

	operation := func() (Judgment, error) {
		j, err := r.inner.Invoke(ctx, tier, pc)
		if err == nil {
			return j, nil
		}
		if errors.Is(err, ErrRateLimited) {
			metrics.RecordProviderRetry()
			return Judgment{}, err
		}
		return Judgment{}, backoff.Permanent(err)
	}

	j, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(r.maxTries),
	)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			return Judgment{}, fmt.Errorf("%w: rate limit retries exhausted: %v", ErrProvider, err)
		}
		return Judgment{}, err
	}
	return j, nil
}
