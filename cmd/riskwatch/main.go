package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bg-scalp-bot/internal/app"
	"bg-scalp-bot/internal/config"
	"bg-scalp-bot/internal/logging"
	"bg-scalp-bot/internal/metrics"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log)
	log.Info("config loaded", zap.String("path", *configPath))

	var m *metrics.Metrics
	if cfg.Metrics.ListenAddr != "" {
		prom := metrics.NewPrometheus()
		m = prom.Metrics
		go serveMetrics(cfg.Metrics.ListenAddr, prom, log)
	}

	watcher, err := app.NewRiskWatch(cfg, log, m)
	if err != nil {
		log.Error("failed to initialize riskwatch", zap.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watcher.Run(ctx); err != nil && err != context.Canceled {
		log.Error("riskwatch terminated", zap.Error(err))
		os.Exit(1)
	}
}

func serveMetrics(addr string, prom *metrics.Prometheus, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	log.Info("metrics listener starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics listener stopped", zap.Error(err))
	}
}
