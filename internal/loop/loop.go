package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bg-scalp-bot/internal/metrics"

	"go.uber.org/zap"
)

// Run ticks fn at a fixed interval until ctx is cancelled. A tick that fails
// or panics is counted, logged and the loop moves on after the normal delay:
// a single bad tick never terminates the process. Cancellation is a clean
// exit, not an error.
func Run(ctx context.Context, name string, interval time.Duration, log *zap.Logger, failed metrics.Counter, tick func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			log.Info("poll loop stopped", zap.String("loop", name))
			return nil
		}
		if err := runTick(ctx, tick); err != nil && !errors.Is(err, context.Canceled) {
			failed.Inc()
			log.Warn("tick failed", zap.String("loop", name), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			log.Info("poll loop stopped", zap.String("loop", name))
			return nil
		case <-ticker.C:
		}
	}
}

func runTick(ctx context.Context, tick func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panicked: %v", r)
		}
	}()
	return tick(ctx)
}
