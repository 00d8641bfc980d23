package analysis

import "errors"

// Sentinel kinds for analysis errors.
var (
	// ErrInvalidResult marks a run whose output violates the result
	// invariant (confidence 0 or missing action). Such results never reach
	// the queue state machine as completed analyses.
	ErrInvalidResult = errors.New("invalid analysis result")
)
