package analysis

import (
	"time"

	"github.com/mazdak/triaged/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithEpsilon sets the convergence epsilon in percentage points.
func WithEpsilon(epsilon int) Option {
	return func(o *Orchestrator) {
		if epsilon > 0 {
			o.epsilon = epsilon
		}
	}
}

// WithPassTimeout bounds each provider call.
func WithPassTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.passTimeout = d
		}
	}
}

// WithContextBudget sets the result budget for context searches.
func WithContextBudget(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.contextBudget = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
