package policy

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithMaxPasses bounds the number of passes in one run.
func WithMaxPasses(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxPasses = n
		}
	}
}

// WithStopBar sets the confidence bar for non-ephemeral content.
func WithStopBar(bar int) Option {
	return func(p *Policy) {
		if bar > 0 && bar <= 100 {
			p.stopBar = bar
		}
	}
}

// WithEphemeralBar sets the reduced confidence bar for ephemeral content.
func WithEphemeralBar(bar int) Option {
	return func(p *Policy) {
		if bar > 0 && bar <= 100 {
			p.ephemeralBar = bar
		}
	}
}

// WithEscalateBelow sets the score under which a continuing run moves to
// a stronger tier.
func WithEscalateBelow(bar int) Option {
	return func(p *Policy) {
		if bar > 0 && bar <= 100 {
			p.escalateBelow = bar
		}
	}
}

// WithStakesForcePass sets the pass by which high-stakes runs must reach
// the top tier.
func WithStakesForcePass(pass int) Option {
	return func(p *Policy) {
		if pass > 0 {
			p.stakesForcePass = pass
		}
	}
}
