package notesearch

import "errors"

// Sentinel kinds for search errors.
var (
	// ErrSearchUnavailable indicates the search backend is down. It is
	// retryable at the orchestrator level.
	ErrSearchUnavailable = errors.New("note search unavailable")
)
