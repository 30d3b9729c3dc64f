package risk

// SpreadBps is the bid/ask spread in basis points of the mid price,
// undefined when either side is missing or non-positive.
func SpreadBps(bid, ask float64) (float64, bool) {
	if bid <= 0 || ask <= 0 {
		return 0, false
	}
	mid := (bid + ask) / 2
	return (ask - bid) / mid * 10000, true
}

// Divergence is the futures/spot gap in percent of the spot price,
// undefined when either price is missing or the spot price is non-positive.
func Divergence(spot, futures float64) (float64, bool) {
	if spot <= 0 || futures <= 0 {
		return 0, false
	}
	return (futures - spot) / spot * 100, true
}

// Signals carries the three per-tick risk readings. Each one is
// independently optional: an undefined signal simply cannot contribute to
// the composite score this tick.
type Signals struct {
	SpreadBps     float64
	HasSpread     bool
	DivergencePct float64
	HasDivergence bool
	CollapsePct   float64
	HasCollapse   bool
}
