package model

import "time"

// Status is the lifecycle state of a queue item.
type Status string

// Queue item statuses.
const (
	StatusQueued         Status = "QUEUED"
	StatusAnalyzing      Status = "ANALYZING"
	StatusAwaitingReview Status = "AWAITING_REVIEW"
	StatusProcessed      Status = "PROCESSED"
	StatusError          Status = "ERROR"
)

// Resolution records how a processed item was settled.
type Resolution string

// Resolutions.
const (
	ResolutionNone           Resolution = ""
	ResolutionAutoApplied    Resolution = "auto_applied"
	ResolutionManualApproved Resolution = "manual_approved"
	ResolutionManualModified Resolution = "manual_modified"
	ResolutionManualRejected Resolution = "manual_rejected"
	ResolutionManualSkipped  Resolution = "manual_skipped"
)

// transitions enumerates the legal state machine edges. ERROR is reachable
// from any non-terminal state and is handled separately in CanTransition.
var transitions = map[Status][]Status{
	StatusQueued:         {StatusAnalyzing},
	StatusAnalyzing:      {StatusAwaitingReview, StatusProcessed},
	StatusAwaitingReview: {StatusProcessed},
	StatusError:          {StatusAnalyzing}, // manual reanalysis
}

// CanTransition reports whether moving from one status to another is a
// legal state machine edge.
func CanTransition(from, to Status) bool {
	if to == StatusError {
		// Unrecoverable failure is reachable from any non-terminal state.
		return from != StatusProcessed && from != StatusError
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status admits no further automatic transitions.
func (s Status) Terminal() bool {
	return s == StatusProcessed
}

// QueueItem is the persisted entity owned by the queue state machine.
// It is mutated only through store transitions, never deleted by this core.
type QueueItem struct {
	ID         string          `json:"id"`
	Event      PerceivedEvent  `json:"event"`
	Result     *AnalysisResult `json:"result,omitempty"` // replaced on reanalysis
	Status     Status          `json:"status"`
	Resolution Resolution      `json:"resolution,omitempty"`
	Attempts   int             `json:"attempts"` // analysis attempts, reset on reanalysis
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
