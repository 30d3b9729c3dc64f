package risk

import "math"

// Thresholds are the warn levels for the three signals. Collapse warns on a
// large negative move, so its threshold is an upper bound.
type Thresholds struct {
	SpreadBpsWarn     float64
	DivergencePctWarn float64
	CollapsePctWarn   float64
}

// Assessment is one tick's composite risk verdict.
type Assessment struct {
	Signals Signals
	Score   int
	Alert   bool
}

// alertScore is the two-of-three design: a single noisy signal never
// triggers action, any two simultaneous stress indicators do.
const alertScore = 2

// Assess counts breached thresholds and raises the composite alert at two
// or more. Undefined signals never contribute.
func (t Thresholds) Assess(sig Signals) Assessment {
	score := 0
	if sig.HasSpread && sig.SpreadBps >= t.SpreadBpsWarn {
		score++
	}
	if sig.HasDivergence && math.Abs(sig.DivergencePct) >= t.DivergencePctWarn {
		score++
	}
	if sig.HasCollapse && sig.CollapsePct <= t.CollapsePctWarn {
		score++
	}
	return Assessment{
		Signals: sig,
		Score:   score,
		Alert:   score >= alertScore,
	}
}
