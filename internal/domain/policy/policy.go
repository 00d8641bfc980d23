// Package policy implements the escalation and stopping policy as a pure
// decision function over an ordered rule table. The rules are data: each
// entry names a condition and the decision it yields, so the ladder is
// testable without running the orchestration loop.
package policy

import "github.com/mazdak/triaged/internal/domain/model"

// Default policy thresholds.
const (
	DefaultMaxPasses       = 5
	DefaultStopBar         = 95 // standard bar for non-ephemeral content
	DefaultEphemeralBar    = 80 // reduced bar for ephemeral content
	DefaultEscalateBelow   = 70 // continue at a stronger tier under this score
	DefaultStakesForcePass = 3  // high stakes reach the top tier no later than this pass
)

// Input is the state the policy decides on after a completed pass.
type Input struct {
	Confidence      int        // confidence after the pass just completed
	PassNumber      int        // 1-based number of the pass just completed
	HighStakes      bool
	Ephemeral       bool
	HighestTierUsed model.Tier // strongest tier used so far in this run
	UnsearchedSeen  bool       // entities seen so far that no search covered yet
}

// Decision is the policy outcome: stop, or continue at a tier with an
// optional context search before the next pass.
type Decision struct {
	Stop          bool
	Reason        model.StopReason
	NextTier      model.Tier
	ContextSearch bool
	Rule          string // name of the rule that fired, for observability
}

// rule is one row of the policy table, evaluated in priority order.
type rule struct {
	name   string
	when   func(Policy, Input) bool
	decide func(Policy, Input) Decision
}

// Policy holds the configured thresholds and the rule table.
type Policy struct {
	maxPasses       int
	stopBar         int
	ephemeralBar    int
	escalateBelow   int
	stakesForcePass int

	table []rule
}

// New builds a policy with defaults, applying any options.
func New(opts ...Option) *Policy {
	p := &Policy{
		maxPasses:       DefaultMaxPasses,
		stopBar:         DefaultStopBar,
		ephemeralBar:    DefaultEphemeralBar,
		escalateBelow:   DefaultEscalateBelow,
		stakesForcePass: DefaultStakesForcePass,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.table = []rule{
		{
			// Ephemeral content gets a materially lower bar and skips
			// context search entirely.
			name: "ephemeral-stop",
			when: func(p Policy, in Input) bool {
				return in.Ephemeral && in.Confidence >= p.ephemeralBar
			},
			decide: func(Policy, Input) Decision {
				return Decision{Stop: true, Reason: model.StopSufficientConfidence}
			},
		},
		{
			name: "confidence-stop",
			when: func(p Policy, in Input) bool { return in.Confidence >= p.stopBar },
			decide: func(Policy, Input) Decision {
				return Decision{Stop: true, Reason: model.StopSufficientConfidence}
			},
		},
		{
			// Bounded cost guarantee: never more than maxPasses passes.
			name: "max-passes",
			when: func(p Policy, in Input) bool { return in.PassNumber >= p.maxPasses },
			decide: func(Policy, Input) Decision {
				return Decision{Stop: true, Reason: model.StopMaxPasses}
			},
		},
		{
			name: "continue",
			when: func(Policy, Input) bool { return true },
			decide: func(p Policy, in Input) Decision {
				return Decision{
					NextTier:      p.nextTier(in),
					ContextSearch: !in.Ephemeral && in.UnsearchedSeen,
				}
			},
		},
	}
	return p
}

// MaxPasses exposes the configured pass bound.
func (p *Policy) MaxPasses() int { return p.maxPasses }

// Decide applies the first matching rule in the table.
func (p *Policy) Decide(in Input) Decision {
	for _, r := range p.table {
		if r.when(*p, in) {
			d := r.decide(*p, in)
			d.Rule = r.name
			return d
		}
	}
	// The table ends with a catch-all; this is unreachable.
	return Decision{Stop: true, Reason: model.StopMaxPasses, Rule: "fallback"}
}

// nextTier selects the tier for the next pass. Escalation is monotonic
// non-decreasing: the result is never weaker than the strongest tier
// already used in this run.
func (p *Policy) nextTier(in Input) model.Tier {
	next := in.HighestTierUsed
	if in.Confidence < p.escalateBelow && next < model.TierHigh {
		next++
	}
	if in.Ephemeral && !in.HighStakes {
		// Ephemeral content never escalates past the lowest tier unless
		// stakes say otherwise.
		return model.MaxTier(model.TierLow, in.HighestTierUsed)
	}
	if in.HighStakes && in.PassNumber+1 >= p.stakesForcePass {
		// Stakes force the top tier no later than the configured pass,
		// bypassing the confidence-driven ladder. This is a tier override
		// only, never a stop condition.
		next = model.TierHigh
	}
	return model.MaxTier(next, in.HighestTierUsed)
}
