package risk

import (
	"time"

	"bg-scalp-bot/internal/market"
)

// Evaluator folds a market snapshot into the three signals and the composite
// verdict. It owns the collapse window across ticks.
type Evaluator struct {
	thresholds Thresholds
	window     Window
}

func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

func (e *Evaluator) Evaluate(now time.Time, snap market.Snapshot) Assessment {
	var sig Signals
	if snap.HasBid && snap.HasAsk {
		sig.SpreadBps, sig.HasSpread = SpreadBps(snap.BestBid, snap.BestAsk)
	}
	if snap.HasSpot && snap.HasFutures {
		sig.DivergencePct, sig.HasDivergence = Divergence(snap.SpotPrice, snap.FuturesPrice)
	}
	if snap.HasNotional {
		sig.CollapsePct, sig.HasCollapse = e.window.Observe(now, snap.BookNotional)
	}
	return e.thresholds.Assess(sig)
}
