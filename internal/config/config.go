package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Broker    BrokerConfig    `yaml:"broker"`
	Market    MarketConfig    `yaml:"market"`
	Request   RequestConfig   `yaml:"request"`
	Trader    TraderConfig    `yaml:"trader"`
	Risk      RiskConfig      `yaml:"risk"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// BrokerConfig points at the order-execution service.
type BrokerConfig struct {
	BaseURL string `yaml:"base_url"`
}

// MarketConfig points at the public market-data provider. The key lists feed
// the drift-tolerant ticker parser; empty lists fall back to the built-ins.
type MarketConfig struct {
	BaseURL    string   `yaml:"base_url"`
	SymbolKeys []string `yaml:"symbol_keys"`
	PriceKeys  []string `yaml:"price_keys"`
}

type RequestConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

type TraderConfig struct {
	Symbol          string        `yaml:"symbol"`
	SizeType        string        `yaml:"size_type"`
	OrderSize       float64       `yaml:"order_size"`
	SpreadPct       float64       `yaml:"spread_pct"`
	HedgeTriggerPct float64       `yaml:"hedge_trigger_pct"`
	RebuyDropPct    float64       `yaml:"rebuy_drop_pct"`
	Leverage        int           `yaml:"leverage"`
	MarginMode      string        `yaml:"margin_mode"`
	SafeMode        bool          `yaml:"safe_mode"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

type RiskConfig struct {
	Symbol            string        `yaml:"symbol"`
	TopN              int           `yaml:"top_n"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	SpreadBpsWarn     float64       `yaml:"spread_bps_warn"`
	DivergencePctWarn float64       `yaml:"divergence_pct_warn"`
	CollapsePctWarn   float64       `yaml:"collapse_pct_warn"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

// Load reads an optional YAML file, overlays environment variables, applies
// defaults and validates. A missing file is fine: both bots can run from
// environment alone. Configuration is consumed once and never re-read.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

// applyEnv overlays the historical flat environment surface. Environment
// values win over the file.
func applyEnv(cfg *Config) error {
	var err error
	setString(&cfg.Broker.BaseURL, "BASE_URL", func(s string) string { return strings.TrimRight(s, "/") })
	setString(&cfg.Market.BaseURL, "MARKET_BASE_URL", func(s string) string { return strings.TrimRight(s, "/") })
	setString(&cfg.Trader.Symbol, "SYMBOL", strings.ToUpper)
	setString(&cfg.Trader.SizeType, "SIZE_TYPE", strings.ToUpper)
	setString(&cfg.Trader.MarginMode, "POS_MODE", strings.ToLower)
	setFloat(&cfg.Trader.OrderSize, "ORDER_SIZE", &err)
	setFloat(&cfg.Trader.SpreadPct, "SPREAD_PCT", &err)
	setFloat(&cfg.Trader.HedgeTriggerPct, "HEDGE_TRIGGER_PCT", &err)
	setFloat(&cfg.Trader.RebuyDropPct, "REBUY_DROP_PCT", &err)
	setInt(&cfg.Trader.Leverage, "LEVERAGE", &err)
	setMillis(&cfg.Trader.PollInterval, "SYMBOL_SCAN_INTERVAL_MS", &err)
	if v, ok := lookup("SAFE_MODE"); ok {
		switch strings.ToLower(v) {
		case "on", "true", "1":
			cfg.Trader.SafeMode = true
		case "off", "false", "0":
			cfg.Trader.SafeMode = false
		default:
			return fmt.Errorf("SAFE_MODE must be on or off, got %q", v)
		}
	}
	setInt(&cfg.Risk.TopN, "TOPN", &err)
	setMillis(&cfg.Risk.PollInterval, "INTERVAL_MS", &err)
	setFloat(&cfg.Risk.SpreadBpsWarn, "SPREAD_BPS_WARN", &err)
	setFloat(&cfg.Risk.DivergencePctWarn, "DIVERGENCE_PCT_WARN", &err)
	setFloat(&cfg.Risk.CollapsePctWarn, "COLLAPSE_PCT_WARN", &err)
	return err
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Broker.BaseURL == "" {
		cfg.Broker.BaseURL = "http://127.0.0.1:8788"
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://api.bitget.com"
	}
	if cfg.Request.Timeout == 0 {
		cfg.Request.Timeout = 10 * time.Second
	}
	if cfg.Request.MaxAttempts == 0 {
		cfg.Request.MaxAttempts = 4
	}
	if cfg.Request.BackoffBase == 0 {
		cfg.Request.BackoffBase = 400 * time.Millisecond
	}
	if cfg.Trader.Symbol == "" {
		cfg.Trader.Symbol = "BTCUSDT"
	}
	if cfg.Trader.SizeType == "" {
		cfg.Trader.SizeType = "USDT"
	}
	if cfg.Trader.OrderSize == 0 {
		cfg.Trader.OrderSize = 20
	}
	if cfg.Trader.SpreadPct == 0 {
		cfg.Trader.SpreadPct = 0.5
	}
	if cfg.Trader.HedgeTriggerPct == 0 {
		cfg.Trader.HedgeTriggerPct = 0.8
	}
	if cfg.Trader.RebuyDropPct == 0 {
		cfg.Trader.RebuyDropPct = 10
	}
	if cfg.Trader.Leverage == 0 {
		cfg.Trader.Leverage = 3
	}
	if cfg.Trader.MarginMode == "" {
		cfg.Trader.MarginMode = "isolated"
	}
	if cfg.Trader.PollInterval == 0 {
		cfg.Trader.PollInterval = 1500 * time.Millisecond
	}
	if cfg.Risk.Symbol == "" {
		cfg.Risk.Symbol = cfg.Trader.Symbol
	}
	if cfg.Risk.TopN == 0 {
		cfg.Risk.TopN = 50
	}
	if cfg.Risk.PollInterval == 0 {
		cfg.Risk.PollInterval = 3 * time.Second
	}
	if cfg.Risk.SpreadBpsWarn == 0 {
		cfg.Risk.SpreadBpsWarn = 600
	}
	if cfg.Risk.DivergencePctWarn == 0 {
		cfg.Risk.DivergencePctWarn = 0.5
	}
	if cfg.Risk.CollapsePctWarn == 0 {
		cfg.Risk.CollapsePctWarn = -20
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
}

func validate(cfg *Config) error {
	if cfg.Trader.OrderSize <= 0 {
		return errors.New("trader.order_size must be > 0")
	}
	if cfg.Trader.SizeType != "USDT" && cfg.Trader.SizeType != "COIN" {
		return fmt.Errorf("trader.size_type must be USDT or COIN, got %q", cfg.Trader.SizeType)
	}
	if cfg.Trader.MarginMode != "isolated" && cfg.Trader.MarginMode != "cross" {
		return fmt.Errorf("trader.margin_mode must be isolated or cross, got %q", cfg.Trader.MarginMode)
	}
	if cfg.Trader.Leverage < 1 {
		return errors.New("trader.leverage must be >= 1")
	}
	if cfg.Trader.SpreadPct <= 0 {
		return errors.New("trader.spread_pct must be > 0")
	}
	if cfg.Risk.TopN < 1 {
		return errors.New("risk.top_n must be >= 1")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, key string, norm func(string) string) {
	if v, ok := lookup(key); ok {
		if norm != nil {
			v = norm(v)
		}
		*dst = v
	}
}

func setFloat(dst *float64, key string, errOut *error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if *errOut == nil {
			*errOut = fmt.Errorf("%s: %w", key, err)
		}
		return
	}
	*dst = parsed
}

func setInt(dst *int, key string, errOut *error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		if *errOut == nil {
			*errOut = fmt.Errorf("%s: %w", key, err)
		}
		return
	}
	*dst = parsed
}

func setMillis(dst *time.Duration, key string, errOut *error) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		if *errOut == nil {
			*errOut = fmt.Errorf("%s: %w", key, err)
		}
		return
	}
	*dst = time.Duration(parsed) * time.Millisecond
}
