package strategy

import "time"

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// TradingState is owned by exactly one tick loop and mutated only by it,
// and only after a broker accept. A restart loses all of it: re-entry and
// hedge decisions resume from this neutral zero value.
type TradingState struct {
	LastBuyPrice  float64
	HasLastBuy    bool
	LastSellPrice float64
	HasLastSell   bool

	// A hedge may only open while a spot buy reference exists, and at most
	// one hedge is open at a time. The three fields move together.
	HedgeSide     Side
	HedgeEntry    float64
	HedgeOpenedAt time.Time

	// AccumCoin is a display-only estimate (notional divided by price at
	// order time), not a position ledger.
	AccumCoin float64
}

func (s TradingState) HedgeOpen() bool {
	return s.HedgeSide != ""
}

// PctMove is the percent move from a reference price to a current price.
// A non-positive reference is an undefined move and reports as neutral 0,
// never a division by zero.
func PctMove(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from * 100
}
