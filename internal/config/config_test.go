package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Broker.BaseURL != "http://127.0.0.1:8788" {
		t.Fatalf("unexpected broker base url %q", cfg.Broker.BaseURL)
	}
	if cfg.Trader.Symbol != "BTCUSDT" || cfg.Trader.SizeType != "USDT" {
		t.Fatalf("unexpected trader defaults: %+v", cfg.Trader)
	}
	if cfg.Trader.PollInterval != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s poll interval, got %v", cfg.Trader.PollInterval)
	}
	if cfg.Request.MaxAttempts != 4 || cfg.Request.BackoffBase != 400*time.Millisecond {
		t.Fatalf("unexpected request defaults: %+v", cfg.Request)
	}
	if cfg.Risk.TopN != 50 || cfg.Risk.CollapsePctWarn != -20 {
		t.Fatalf("unexpected risk defaults: %+v", cfg.Risk)
	}
	if cfg.Risk.Symbol != cfg.Trader.Symbol {
		t.Fatalf("risk symbol should default to trader symbol")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
trader:
  symbol: ETHUSDT
  order_size: 35
  spread_pct: 0.8
risk:
  top_n: 25
market:
  price_keys: [px, lastPr]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Trader.Symbol != "ETHUSDT" || cfg.Trader.OrderSize != 35 {
		t.Fatalf("yaml values not applied: %+v", cfg.Trader)
	}
	if cfg.Risk.TopN != 25 {
		t.Fatalf("expected top_n 25, got %d", cfg.Risk.TopN)
	}
	if len(cfg.Market.PriceKeys) != 2 || cfg.Market.PriceKeys[0] != "px" {
		t.Fatalf("price key override not applied: %v", cfg.Market.PriceKeys)
	}
	if cfg.Risk.Symbol != "ETHUSDT" {
		t.Fatalf("risk symbol should follow trader symbol, got %q", cfg.Risk.Symbol)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SYMBOL", "solusdt")
	t.Setenv("ORDER_SIZE", "12.5")
	t.Setenv("SAFE_MODE", "on")
	t.Setenv("SYMBOL_SCAN_INTERVAL_MS", "2500")
	t.Setenv("COLLAPSE_PCT_WARN", "-35")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Trader.Symbol != "SOLUSDT" {
		t.Fatalf("expected SYMBOL upper-cased, got %q", cfg.Trader.Symbol)
	}
	if cfg.Trader.OrderSize != 12.5 {
		t.Fatalf("expected order size 12.5, got %f", cfg.Trader.OrderSize)
	}
	if !cfg.Trader.SafeMode {
		t.Fatalf("expected safe mode engaged")
	}
	if cfg.Trader.PollInterval != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s interval, got %v", cfg.Trader.PollInterval)
	}
	if cfg.Risk.CollapsePctWarn != -35 {
		t.Fatalf("expected collapse warn -35, got %f", cfg.Risk.CollapsePctWarn)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("LEVERAGE", "three")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unparseable LEVERAGE")
	}
}

func TestInvalidSafeMode(t *testing.T) {
	t.Setenv("SAFE_MODE", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid SAFE_MODE")
	}
}

func TestValidateRejectsBadSizeType(t *testing.T) {
	t.Setenv("SIZE_TYPE", "SHARES")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected validation error for size type")
	}
}

func TestValidateRequiresTimescaleDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timescale:\n  enabled: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when timescale enabled without dsn")
	}
}
