package model

import "time"

// Tier is a reasoning capability level. Tiers only ever escalate within a
// single analysis run; the orchestrator never steps back down.
type Tier int

// Capability tiers, cheapest first.
const (
	TierLow Tier = iota
	TierMid
	TierHigh
)

// String returns the tier name used in logs and metrics labels.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMid:
		return "mid"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MaxTier returns the stronger of two tiers.
func MaxTier(a, b Tier) Tier {
	if a > b {
		return a
	}
	return b
}

// PassRole labels what a pass was asked to do.
type PassRole string

// Pass roles in the order they typically occur.
const (
	RoleExtraction  PassRole = "first-pass-extraction"
	RoleEnrichment  PassRole = "context-enrichment"
	RoleCritique    PassRole = "critique"
	RoleArbitration PassRole = "final-arbitration"
)

// StopReason records why an analysis run terminated.
type StopReason string

// Stop reasons. The distinction between sufficient-confidence and
// no-change is preserved for observability.
const (
	StopSufficientConfidence StopReason = "sufficient-confidence"
	StopNoChange             StopReason = "no-change"
	StopMaxPasses            StopReason = "max-passes"
)

// AnalysisPass is one immutable record per executed reasoning pass.
type AnalysisPass struct {
	Number           int           `json:"number"` // 1-based
	Tier             Tier          `json:"tier"`
	Role             PassRole      `json:"role"`
	ConfidenceBefore int           `json:"confidence_before"`
	ConfidenceAfter  int           `json:"confidence_after"`
	ContextSearched  bool          `json:"context_searched"`
	ContextMatches   int           `json:"context_matches"`
	Escalated        bool          `json:"escalated"`
	OpenQuestions    []string      `json:"open_questions,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// Alternative is a rejected option carried in the final result so a
// reviewer can see what was considered.
type Alternative struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// Artifact is a proposed side effect (a note change, a task creation).
// The payload is opaque to the analysis core.
type Artifact struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// AnalysisResult is the final, immutable output of one analysis run.
type AnalysisResult struct {
	Action       string         `json:"action"`
	Category     string         `json:"category"`
	Confidence   int            `json:"confidence"` // composite, 0-100
	Reasoning    string         `json:"reasoning"`
	Alternatives []Alternative  `json:"alternatives,omitempty"`
	Artifacts    []Artifact     `json:"artifacts,omitempty"`
	Passes       []AnalysisPass `json:"passes"`
	StopReason   StopReason     `json:"stop_reason"`
	ContextNotes []string       `json:"context_notes,omitempty"` // retrieved note IDs
}

// Valid reports whether the result is a legal terminal state: confidence
// in [0,100] and a non-empty action whenever confidence is positive.
// Invalid results must never be forwarded to review.
func (r AnalysisResult) Valid() bool {
	if r.Confidence < 0 || r.Confidence > 100 {
		return false
	}
	if r.Confidence > 0 && r.Action == "" {
		return false
	}
	return r.Confidence > 0
}
