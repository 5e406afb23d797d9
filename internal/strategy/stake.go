package strategy

import "math"

// Stake sizing rules. All helpers assume the caller holds s.mu.

// effectiveLossThreshold shrinks the allowable drawdown by 10% per
// consecutive loss, floored at half the configured threshold.
func (s *Strategy) effectiveLossThreshold() float64 {
	factor := 1 - 0.1*float64(s.state.ConsecutiveLosses)
	if factor < 0.5 {
		factor = 0.5
	}
	return s.config.LossThreshold * factor
}

// selectOptimalSequence picks the progression for the next stake. Two or more
// consecutive losses favor the flat ascending sequence; recovery and normal
// play stay on the reference progression.
func (s *Strategy) selectOptimalSequence() SequenceKind {
	switch {
	case s.state.ConsecutiveLosses >= 2:
		return KindConservative
	case s.state.InRecovery:
		return KindReference
	default:
		return KindReference
	}
}

// nextStake computes the amount for the next trade: sequence multiplier (or
// the recovery formula while recovering), volatility-adjusted, then clamped.
func (s *Strategy) nextStake() float64 {
	var base float64
	if s.state.InRecovery {
		base = s.recoveryStake()
	} else {
		kind := s.selectOptimalSequence()
		seq := kind.Multipliers()
		base = s.config.InitialStake * float64(seq[s.position()])
	}
	return s.validateStake(s.volatilityAdjustedStake(base))
}

// recoveryStake grows with the loss streak but never risks more than a
// quarter of the loss threshold in a single trade.
func (s *Strategy) recoveryStake() float64 {
	stake := s.config.InitialStake * (1 + 0.5*float64(s.state.ConsecutiveLosses))
	ceiling := 0.25 * s.config.LossThreshold
	if stake > ceiling {
		stake = ceiling
	}
	return stake
}

// volatilityAdjustedStake reduces the base stake by up to half depending on
// the loss rate over the recent history window. No history means no signal,
// so the base passes through unchanged.
func (s *Strategy) volatilityAdjustedStake(base float64) float64 {
	window := s.recentHistory(volatilityWindowSize)
	if len(window) == 0 {
		return base
	}
	losses := 0
	for _, h := range window {
		if h.Outcome == OutcomeLoss {
			losses++
		}
	}
	lossRate := float64(losses) / float64(len(window))
	reduction := math.Min(lossRate*0.7, 0.5)
	return base * (1 - reduction)
}

// validateStake clamps a computed amount into [initialStake, 0.3*lossThreshold].
func (s *Strategy) validateStake(amount float64) float64 {
	floor := s.config.InitialStake
	ceiling := 0.3 * s.config.LossThreshold
	if amount < floor {
		return floor
	}
	if amount > ceiling {
		return ceiling
	}
	return amount
}

// position reads the sequence position, treating out-of-range values as the
// start of the sequence rather than failing.
func (s *Strategy) position() int {
	p := s.state.SequencePosition
	if p < 0 || p >= SequenceLength {
		return 0
	}
	return p
}

// recentHistory returns up to n most recent history entries, newest last.
func (s *Strategy) recentHistory(n int) []HistoryEntry {
	if len(s.history) <= n {
		return s.history
	}
	return s.history[len(s.history)-n:]
}

const volatilityWindowSize = 10
