package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bg-scalp-bot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// KPISample is one risk tick's readings as persisted for later analysis.
// Undefined signals keep their Has flag false and a zero value.
type KPISample struct {
	Time          time.Time
	Symbol        string
	SpreadBps     float64
	HasSpread     bool
	DivergencePct float64
	HasDivergence bool
	CollapsePct   float64
	HasCollapse   bool
	Score         int
	Alert         bool
}

// TradeEvent is one order attempt made by the trader.
type TradeEvent struct {
	Time     time.Time
	Symbol   string
	Action   string
	Side     string
	Price    float64
	Size     float64
	SizeType string
	Accepted bool
}

// Writer asynchronously persists KPI samples and trade events to a
// Timescale/Postgres database. Enqueueing never blocks a tick: a full queue
// drops the row and bumps a drop counter.
type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	kpis      chan KPISample
	trades    chan TradeEvent
	started   atomic.Bool
	dropKPI   atomic.Uint64
	dropTrade atomic.Uint64
}

// New returns (nil, nil) when the writer is disabled; a nil *Writer is safe
// to use everywhere.
func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		kpis:   make(chan KPISample, queueSize),
		trades: make(chan TradeEvent, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueKPI(sample KPISample) {
	if w == nil {
		return
	}
	select {
	case w.kpis <- sample:
	default:
		if w.dropKPI.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale kpi queue full")
		}
	}
}

func (w *Writer) EnqueueTrade(event TradeEvent) {
	if w == nil {
		return
	}
	select {
	case w.trades <- event:
	default:
		if w.dropTrade.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale trade queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-w.kpis:
			w.writeKPI(ctx, sample)
		case event := <-w.trades:
			w.writeTrade(ctx, event)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		spread_bps DOUBLE PRECISION NOT NULL,
		has_spread BOOLEAN NOT NULL,
		divergence_pct DOUBLE PRECISION NOT NULL,
		has_divergence BOOLEAN NOT NULL,
		collapse_pct DOUBLE PRECISION NOT NULL,
		has_collapse BOOLEAN NOT NULL,
		score INTEGER NOT NULL,
		alert BOOLEAN NOT NULL
	)`, w.table("risk_kpis"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		side TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		size DOUBLE PRECISION NOT NULL,
		size_type TEXT NOT NULL,
		accepted BOOLEAN NOT NULL
	)`, w.table("trade_events"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	for _, table := range []string{"risk_kpis", "trade_events"} {
		if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table(table))); err != nil && w.log != nil {
			w.log.Warn("hypertable create failed", zap.String("table", table), zap.Error(err))
		}
	}
	return nil
}

func (w *Writer) writeKPI(ctx context.Context, sample KPISample) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, spread_bps, has_spread, divergence_pct, has_divergence,
		collapse_pct, has_collapse, score, alert
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, w.table("risk_kpis"))
	if _, err := w.db.ExecContext(ctx, query,
		sample.Time,
		sample.Symbol,
		sample.SpreadBps,
		sample.HasSpread,
		sample.DivergencePct,
		sample.HasDivergence,
		sample.CollapsePct,
		sample.HasCollapse,
		sample.Score,
		sample.Alert,
	); err != nil && w.log != nil {
		w.log.Warn("risk kpi insert failed", zap.Error(err))
	}
}

func (w *Writer) writeTrade(ctx context.Context, event TradeEvent) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, action, side, price, size, size_type, accepted
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, w.table("trade_events"))
	if _, err := w.db.ExecContext(ctx, query,
		event.Time,
		event.Symbol,
		event.Action,
		event.Side,
		event.Price,
		event.Size,
		event.SizeType,
		event.Accepted,
	); err != nil && w.log != nil {
		w.log.Warn("trade event insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
