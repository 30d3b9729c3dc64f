package strategy

import (
	"context"
	"time"

	"bg-scalp-bot/internal/broker"
	"bg-scalp-bot/internal/config"
	"bg-scalp-bot/internal/market"
	"bg-scalp-bot/internal/request"

	"go.uber.org/zap"
)

// Hedge close policy: unwind once the adverse move has mostly reverted, or
// unconditionally after the hold window. Deliberately literal, not tunables.
const (
	hedgeRecoveryPct = -0.3
	hedgeMaxHold     = 900 * time.Second
)

// Broker is the slice of the execution boundary the engine needs. Rejection
// is a value, not an error: state only moves on an OK result.
type Broker interface {
	PlaceSpot(ctx context.Context, order broker.SpotOrder) request.Result
	PlaceFutures(ctx context.Context, order broker.FuturesOrder) request.Result
}

type Action string

const (
	ActionRebuy      Action = "rebuy"
	ActionEntry      Action = "entry"
	ActionExit       Action = "exit"
	ActionHedgeOpen  Action = "hedge_open"
	ActionHedgeClose Action = "hedge_close"
)

// Event records one order attempt made during a tick, for logging, metrics
// and the audit journal.
type Event struct {
	Action   Action
	Side     string
	Price    float64
	MovePct  float64
	Accepted bool
}

// Engine drives the entry/exit/hedge rules over a TradingState. One tick
// runs the rules in a fixed order against a freshly read spot price; every
// broker call completes before the tick returns, so ticks never overlap.
type Engine struct {
	cfg    config.TraderConfig
	broker Broker
	log    *zap.Logger
	now    func() time.Time
	state  TradingState
}

func New(cfg config.TraderConfig, b Broker, log *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		broker: b,
		log:    log,
		now:    time.Now,
	}
}

// State returns a copy for display and tests; the engine owns the original.
func (e *Engine) State() TradingState {
	return e.state
}

// Tick evaluates the rules once. A snapshot without a spot price skips the
// whole tick; a snapshot without a futures price only degrades the hedge
// entry reference.
func (e *Engine) Tick(ctx context.Context, snap market.Snapshot) []Event {
	if !snap.HasSpot {
		return nil
	}
	p := snap.SpotPrice
	var events []Event

	if ev, fired := e.tryEntry(ctx, p); fired {
		events = append(events, ev)
	}
	if ev, fired := e.tryExit(ctx, p); fired {
		events = append(events, ev)
	}
	if ev, fired := e.tryHedgeOpen(ctx, p, snap); fired {
		events = append(events, ev)
	}
	if ev, fired := e.tryHedgeClose(ctx, p); fired {
		events = append(events, ev)
	}
	return events
}

// tryEntry covers the re-entry rule and the cold-start entry. The two are
// mutually exclusive per tick: once a sell reference exists, only the rebuy
// rule can open the next cycle.
func (e *Engine) tryEntry(ctx context.Context, p float64) (Event, bool) {
	if e.state.HasLastSell {
		drop := PctMove(e.state.LastSellPrice, p)
		if drop > -e.cfg.RebuyDropPct {
			return Event{}, false
		}
		res := e.placeSpot(ctx, broker.SideBuy)
		if res.OK {
			e.state.LastBuyPrice = p
			e.state.HasLastBuy = true
			e.addAccumCoin(p)
		}
		e.log.Info("rebuy rule fired",
			zap.Float64("price", p),
			zap.Float64("drop_pct", drop),
			zap.Bool("accepted", res.OK),
		)
		return Event{Action: ActionRebuy, Side: broker.SideBuy, Price: p, MovePct: drop, Accepted: res.OK}, true
	}

	if e.state.HasLastBuy {
		return Event{}, false
	}
	res := e.placeSpot(ctx, broker.SideBuy)
	if res.OK {
		e.state.LastBuyPrice = p
		e.state.HasLastBuy = true
		e.addAccumCoin(p)
	}
	e.log.Info("cold-start entry", zap.Float64("price", p), zap.Bool("accepted", res.OK))
	return Event{Action: ActionEntry, Side: broker.SideBuy, Price: p, Accepted: res.OK}, true
}

func (e *Engine) tryExit(ctx context.Context, p float64) (Event, bool) {
	if !e.state.HasLastBuy {
		return Event{}, false
	}
	gain := PctMove(e.state.LastBuyPrice, p)
	if gain < e.cfg.SpreadPct {
		return Event{}, false
	}
	res := e.placeSpot(ctx, broker.SideSell)
	if res.OK {
		e.state.LastSellPrice = p
		e.state.HasLastSell = true
		e.state.LastBuyPrice = 0
		e.state.HasLastBuy = false
	}
	e.log.Info("spread exit",
		zap.Float64("price", p),
		zap.Float64("gain_pct", gain),
		zap.Bool("accepted", res.OK),
	)
	return Event{Action: ActionExit, Side: broker.SideSell, Price: p, MovePct: gain, Accepted: res.OK}, true
}

func (e *Engine) tryHedgeOpen(ctx context.Context, p float64, snap market.Snapshot) (Event, bool) {
	if e.cfg.SafeMode {
		return Event{}, false
	}
	if !e.state.HasLastBuy || e.state.HedgeOpen() {
		return Event{}, false
	}
	drop := PctMove(e.state.LastBuyPrice, p)
	if drop > -e.cfg.HedgeTriggerPct {
		return Event{}, false
	}
	res := e.placeFutures(ctx, broker.SideSell)
	if res.OK {
		e.state.HedgeSide = SideShort
		e.state.HedgeEntry = p
		if snap.HasFutures {
			e.state.HedgeEntry = snap.FuturesPrice
		}
		e.state.HedgeOpenedAt = e.now()
	}
	e.log.Info("hedge opened against adverse move",
		zap.Float64("price", p),
		zap.Float64("drop_pct", drop),
		zap.Bool("accepted", res.OK),
	)
	return Event{Action: ActionHedgeOpen, Side: broker.SideSell, Price: p, MovePct: drop, Accepted: res.OK}, true
}

func (e *Engine) tryHedgeClose(ctx context.Context, p float64) (Event, bool) {
	if e.state.HedgeSide != SideShort || !e.state.HasLastBuy {
		return Event{}, false
	}
	recovery := PctMove(e.state.LastBuyPrice, p)
	elapsed := e.now().Sub(e.state.HedgeOpenedAt)
	if recovery < hedgeRecoveryPct && elapsed < hedgeMaxHold {
		return Event{}, false
	}
	res := e.placeFutures(ctx, broker.SideBuy)
	if res.OK {
		e.state.HedgeSide = ""
		e.state.HedgeEntry = 0
		e.state.HedgeOpenedAt = time.Time{}
	}
	e.log.Info("hedge closed",
		zap.Float64("price", p),
		zap.Float64("recovery_pct", recovery),
		zap.Duration("held", elapsed),
		zap.Bool("accepted", res.OK),
	)
	return Event{Action: ActionHedgeClose, Side: broker.SideBuy, Price: p, MovePct: recovery, Accepted: res.OK}, true
}

func (e *Engine) placeSpot(ctx context.Context, side string) request.Result {
	return e.broker.PlaceSpot(ctx, broker.SpotOrder{
		Symbol:   e.cfg.Symbol,
		Side:     side,
		SizeType: e.cfg.SizeType,
		Size:     e.cfg.OrderSize,
	})
}

func (e *Engine) placeFutures(ctx context.Context, side string) request.Result {
	return e.broker.PlaceFutures(ctx, broker.FuturesOrder{
		Symbol:     e.cfg.Symbol,
		Side:       side,
		SizeType:   e.cfg.SizeType,
		Size:       e.cfg.OrderSize,
		Leverage:   e.cfg.Leverage,
		MarginMode: e.cfg.MarginMode,
	})
}

func (e *Engine) addAccumCoin(p float64) {
	if e.cfg.SizeType == "COIN" {
		e.state.AccumCoin += e.cfg.OrderSize
		return
	}
	if p > 0 {
		e.state.AccumCoin += e.cfg.OrderSize / p
	}
}
