package app

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"bg-scalp-bot/internal/alerts"
	"bg-scalp-bot/internal/broker"
	"bg-scalp-bot/internal/config"
	"bg-scalp-bot/internal/loop"
	"bg-scalp-bot/internal/market"
	"bg-scalp-bot/internal/metrics"
	"bg-scalp-bot/internal/request"
	"bg-scalp-bot/internal/state"
	"bg-scalp-bot/internal/state/sqlite"
	"bg-scalp-bot/internal/strategy"
	"bg-scalp-bot/internal/timescale"

	"go.uber.org/zap"
)

// heartbeatOneIn throttles the idle heartbeat to roughly one tick in ten, so
// a quiet market still leaves a trace in the logs without flooding them.
const heartbeatOneIn = 10

// Trader is the scalping bot: one polling loop reading spot and futures
// prices and driving the strategy engine, with orders routed through the
// execution service.
type Trader struct {
	cfg     *config.Config
	log     *zap.Logger
	feed    *market.Feed
	engine  *strategy.Engine
	metrics *metrics.Metrics
	store   *sqlite.Store
	journal *state.Journal
	tsdb    *timescale.Writer
	alerts  *alerts.Telegram
	chance  func(oneIn int) bool
}

func NewTrader(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Trader, error) {
	req := request.New(cfg.Request.Timeout, log,
		request.WithMaxAttempts(cfg.Request.MaxAttempts),
		request.WithBackoffBase(cfg.Request.BackoffBase),
	)
	feed := market.NewFeed(req, cfg.Market.BaseURL, cfg.Market.SymbolKeys, cfg.Market.PriceKeys, log)
	engine := strategy.New(cfg.Trader, broker.New(req, cfg.Broker.BaseURL, log), log)

	var store *sqlite.Store
	var journal *state.Journal
	if cfg.State.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
			return nil, err
		}
		s, err := sqlite.New(cfg.State.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = s
		journal = state.NewJournal(s)
	}

	tsdb, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Trader{
		cfg:     cfg,
		log:     log,
		feed:    feed,
		engine:  engine,
		metrics: m,
		store:   store,
		journal: journal,
		tsdb:    tsdb,
		alerts:  alerts.NewTelegram(cfg.Telegram, log),
		chance:  func(oneIn int) bool { return rand.IntN(oneIn) == 0 },
	}, nil
}

func (t *Trader) Run(ctx context.Context) error {
	defer t.close()
	t.tsdb.Start(ctx)
	tc := t.cfg.Trader
	t.log.Info("trader starting",
		zap.String("symbol", tc.Symbol),
		zap.String("size_type", tc.SizeType),
		zap.Float64("order_size", tc.OrderSize),
		zap.Float64("spread_pct", tc.SpreadPct),
		zap.Float64("hedge_trigger_pct", tc.HedgeTriggerPct),
		zap.Float64("rebuy_drop_pct", tc.RebuyDropPct),
		zap.Int("leverage", tc.Leverage),
		zap.String("margin_mode", tc.MarginMode),
		zap.Bool("safe_mode", tc.SafeMode),
		zap.Duration("poll_interval", tc.PollInterval),
	)
	return loop.Run(ctx, "trader", tc.PollInterval, t.log, t.metrics.TicksFailed, t.tick)
}

func (t *Trader) close() {
	if t.store != nil {
		_ = t.store.Close()
	}
	_ = t.tsdb.Close()
}

func (t *Trader) tick(ctx context.Context) error {
	symbol := t.cfg.Trader.Symbol
	var snap market.Snapshot
	snap.SpotPrice, snap.HasSpot = t.feed.SpotPrice(ctx, symbol)
	if !snap.HasSpot {
		t.metrics.DataMisses.Inc()
		return nil
	}
	snap.FuturesPrice, snap.HasFutures = t.feed.FuturesPrice(ctx, symbol)

	events := t.engine.Tick(ctx, snap)
	for _, ev := range events {
		t.handleEvent(ctx, ev)
	}
	if len(events) == 0 && t.chance(heartbeatOneIn) {
		st := t.engine.State()
		fields := []zap.Field{
			zap.Float64("spot", snap.SpotPrice),
			zap.Bool("hedged", st.HedgeOpen()),
			zap.Float64("accum_coin", st.AccumCoin),
		}
		if snap.HasFutures {
			fields = append(fields, zap.Float64("futures", snap.FuturesPrice))
		}
		if st.HasLastBuy {
			fields = append(fields, zap.Float64("last_buy", st.LastBuyPrice))
		}
		if st.HasLastSell {
			fields = append(fields, zap.Float64("last_sell", st.LastSellPrice))
		}
		t.log.Info("heartbeat", fields...)
	}
	return nil
}

func (t *Trader) handleEvent(ctx context.Context, ev strategy.Event) {
	t.metrics.OrdersPlaced.Inc()
	if !ev.Accepted {
		t.metrics.OrdersRejected.Inc()
	}
	symbol := t.cfg.Trader.Symbol
	if ev.Accepted {
		switch ev.Action {
		case strategy.ActionHedgeOpen:
			t.metrics.HedgesOpened.Inc()
			t.alerts.Notify(ctx, alerts.HedgeOpenedMessage(symbol, ev.Price, ev.MovePct))
		case strategy.ActionHedgeClose:
			t.metrics.HedgesClosed.Inc()
			t.alerts.Notify(ctx, alerts.HedgeClosedMessage(symbol, ev.Price, ev.MovePct))
		}
	}
	if t.journal != nil {
		if err := t.journal.Record(ctx, "trade", ev); err != nil {
			t.log.Warn("journal write failed", zap.Error(err))
		}
	}
	t.tsdb.EnqueueTrade(timescale.TradeEvent{
		Time:     time.Now(),
		Symbol:   symbol,
		Action:   string(ev.Action),
		Side:     ev.Side,
		Price:    ev.Price,
		Size:     t.cfg.Trader.OrderSize,
		SizeType: t.cfg.Trader.SizeType,
		Accepted: ev.Accepted,
	})
}
