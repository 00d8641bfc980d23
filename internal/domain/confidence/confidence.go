// Package confidence provides the scoring utilities shared by the
// orchestrator and the escalation policy: clamping, convergence detection,
// and the composite score folded into the final result.
package confidence

import "github.com/mazdak/triaged/internal/domain/model"

// Score bounds and defaults.
const (
	Min = 0
	Max = 100

	// DefaultEpsilon is the convergence epsilon in percentage points: two
	// consecutive passes moving confidence by less than this are treated
	// as a plateau.
	DefaultEpsilon = 5
)

// Clamp bounds a raw score into [Min, Max].
func Clamp(score int) int {
	if score < Min {
		return Min
	}
	if score > Max {
		return Max
	}
	return score
}

// Delta returns the absolute confidence change between two passes.
func Delta(before, after int) int {
	d := after - before
	if d < 0 {
		d = -d
	}
	return d
}

// Converged reports whether two consecutive passes plateaued: the change
// between them is strictly below epsilon.
func Converged(before, after, epsilon int) bool {
	return Delta(before, after) < epsilon
}

// Composite folds a run's pass history into the single 0-100 score carried
// by the result. The last pass dominates since it saw the most context; the
// peak acts as a mild floor so a noisy final pass does not erase earlier
// certainty.
func Composite(passes []model.AnalysisPass) int {
	if len(passes) == 0 {
		return Min
	}
	last := passes[len(passes)-1].ConfidenceAfter
	peak := last
	for _, p := range passes {
		if p.ConfidenceAfter > peak {
			peak = p.ConfidenceAfter
		}
	}
	// Weighted 3:1 toward the final pass, rounded.
	return Clamp((last*3 + peak + 2) / 4)
}

// Band buckets a score for logging and metrics labels.
func Band(score int) string {
	switch {
	case score >= 90:
		return "high"
	case score >= 70:
		return "medium"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}
