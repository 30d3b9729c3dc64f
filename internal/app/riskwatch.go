package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bg-scalp-bot/internal/alerts"
	"bg-scalp-bot/internal/config"
	"bg-scalp-bot/internal/loop"
	"bg-scalp-bot/internal/market"
	"bg-scalp-bot/internal/metrics"
	"bg-scalp-bot/internal/request"
	"bg-scalp-bot/internal/risk"
	"bg-scalp-bot/internal/state"
	"bg-scalp-bot/internal/state/sqlite"
	"bg-scalp-bot/internal/timescale"

	"go.uber.org/zap"
)

// RiskWatch is the microstructure monitor: one polling loop folding spot,
// futures and order-book reads into the three risk signals and the
// composite verdict. It observes and reports; it never trades.
type RiskWatch struct {
	cfg       *config.Config
	log       *zap.Logger
	feed      *market.Feed
	evaluator *risk.Evaluator
	metrics   *metrics.Metrics
	store     *sqlite.Store
	journal   *state.Journal
	tsdb      *timescale.Writer
	alerts    *alerts.Telegram
	now       func() time.Time
}

func NewRiskWatch(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*RiskWatch, error) {
	req := request.New(cfg.Request.Timeout, log,
		request.WithMaxAttempts(cfg.Request.MaxAttempts),
		request.WithBackoffBase(cfg.Request.BackoffBase),
	)
	feed := market.NewFeed(req, cfg.Market.BaseURL, cfg.Market.SymbolKeys, cfg.Market.PriceKeys, log)
	evaluator := risk.NewEvaluator(risk.Thresholds{
		SpreadBpsWarn:     cfg.Risk.SpreadBpsWarn,
		DivergencePctWarn: cfg.Risk.DivergencePctWarn,
		CollapsePctWarn:   cfg.Risk.CollapsePctWarn,
	})

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
	return &RiskWatch{
		cfg:       cfg,
		log:       log,
		feed:      feed,
		evaluator: evaluator,
		metrics:   m,
		store:     store,
		journal:   journal,
		tsdb:      tsdb,
		alerts:    alerts.NewTelegram(cfg.Telegram, log),
		now:       time.Now,
	}, nil
}

func (r *RiskWatch) Run(ctx context.Context) error {
	defer r.close()
	r.tsdb.Start(ctx)
	rc := r.cfg.Risk
	r.log.Info("riskwatch starting",
		zap.String("symbol", rc.Symbol),
		zap.Int("top_n", rc.TopN),
		zap.Float64("spread_bps_warn", rc.SpreadBpsWarn),
		zap.Float64("divergence_pct_warn", rc.DivergencePctWarn),
		zap.Float64("collapse_pct_warn", rc.CollapsePctWarn),
		zap.Duration("poll_interval", rc.PollInterval),
	)
	return loop.Run(ctx, "riskwatch", rc.PollInterval, r.log, r.metrics.TicksFailed, r.tick)
}

func (r *RiskWatch) close() {
	if r.store != nil {
		_ = r.store.Close()
	}
	_ = r.tsdb.Close()
}

func (r *RiskWatch) tick(ctx context.Context) error {
	symbol := r.cfg.Risk.Symbol
	var snap market.Snapshot
	snap.SpotPrice, snap.HasSpot = r.feed.SpotPrice(ctx, symbol)
	snap.FuturesPrice, snap.HasFutures = r.feed.FuturesPrice(ctx, symbol)
	r.feed.DepthSnapshot(ctx, symbol, r.cfg.Risk.TopN, &snap)
	if !snap.HasSpot && !snap.HasFutures && !snap.HasNotional {
		r.metrics.DataMisses.Inc()
		return nil
	}

	now := r.now()
	assessment := r.evaluator.Evaluate(now, snap)
	sig := assessment.Signals
	r.log.Info("risk kpis",
		zap.Float64("spread_bps", sig.SpreadBps),
		zap.Bool("has_spread", sig.HasSpread),
		zap.Float64("divergence_pct", sig.DivergencePct),
		zap.Bool("has_divergence", sig.HasDivergence),
		zap.Float64("collapse_pct", sig.CollapsePct),
		zap.Bool("has_collapse", sig.HasCollapse),
		zap.Int("score", assessment.Score),
		zap.Bool("alert", assessment.Alert),
	)
	r.tsdb.EnqueueKPI(timescale.KPISample{
		Time:          now,
		Symbol:        symbol,
		SpreadBps:     sig.SpreadBps,
		HasSpread:     sig.HasSpread,
		DivergencePct: sig.DivergencePct,
		HasDivergence: sig.HasDivergence,
		CollapsePct:   sig.CollapsePct,
		HasCollapse:   sig.HasCollapse,
		Score:         assessment.Score,
		Alert:         assessment.Alert,
	})
	if assessment.Alert {
		r.metrics.RiskAlerts.Inc()
		summary := breachSummary(r.cfg.Risk, sig)
		r.log.Warn("composite risk alert",
			zap.Int("score", assessment.Score),
			zap.String("breached", summary),
		)
		if r.journal != nil {
			if err := r.journal.Record(ctx, "risk_alert", assessment); err != nil {
				r.log.Warn("journal write failed", zap.Error(err))
			}
		}
		r.alerts.Notify(ctx, alerts.RiskAlertMessage(symbol, assessment.Score, summary))
	}
	return nil
}

// breachSummary names the signals past their warn levels, for the alert text.
func breachSummary(rc config.RiskConfig, sig risk.Signals) string {
	var parts []string
	if sig.HasSpread && sig.SpreadBps >= rc.SpreadBpsWarn {
		parts = append(parts, "spread")
	}
	if sig.HasDivergence && (sig.DivergencePct >= rc.DivergencePctWarn || sig.DivergencePct <= -rc.DivergencePctWarn) {
		parts = append(parts, "divergence")
	}
	if sig.HasCollapse && sig.CollapsePct <= rc.CollapsePctWarn {
		parts = append(parts, "collapse")
	}
	return strings.Join(parts, ", ")
}
