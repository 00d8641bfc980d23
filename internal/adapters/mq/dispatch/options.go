package dispatch

import "github.com/mazdak/triaged/pkg/logger"

// Option applies a configuration option to a Dispatcher.
type Option func(*Dispatcher)

// WithName names the dispatcher, mostly for logs.
func WithName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.name = name
		}
	}
}

// WithAutoApplyThreshold sets the confidence at or above which results are
// applied without review.
func WithAutoApplyThreshold(threshold int) Option {
	return func(d *Dispatcher) {
		if threshold > 0 && threshold <= 100 {
			d.autoApply = threshold
		}
	}
}

// WithMaxAttempts bounds invalid-result reruns before the item errors out.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxTries = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
