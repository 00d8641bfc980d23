package reasoning

import "errors"

// Sentinel kinds for provider errors.
var (
	// ErrRateLimited indicates the provider throttled the call. Retried
	// with exponential backoff by the Retrying decorator.
	ErrRateLimited = errors.New("reasoning provider rate limited")

	// ErrProvider indicates a provider failure other than rate limiting,
	// including exhausted rate-limit retries. Retried once at the
	// orchestrator level before the item errors out.
	ErrProvider = errors.New("reasoning provider failure")
)
