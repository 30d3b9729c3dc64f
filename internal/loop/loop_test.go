package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingCounter struct {
	n atomic.Int32
}

func (c *countingCounter) Inc() { c.n.Add(1) }

func TestRunSurvivesErrorsAndPanics(t *testing.T) {
	var ticks atomic.Int32
	var failed countingCounter
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, "test", time.Millisecond, zap.NewNop(), &failed, func(context.Context) error {
			switch ticks.Add(1) {
			case 1:
				return errors.New("transient")
			case 2:
				panic("boom")
			case 5:
				cancel()
			}
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancellation must be a clean exit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop after cancellation")
	}
	if got := ticks.Load(); got < 5 {
		t.Fatalf("expected the loop to keep ticking past failures, got %d ticks", got)
	}
	if got := failed.n.Load(); got != 2 {
		t.Fatalf("expected 2 counted failures, got %d", got)
	}
}

func TestRunStopsPromptlyWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var ticks atomic.Int32
	var failed countingCounter
	err := Run(ctx, "test", time.Hour, zap.NewNop(), &failed, func(context.Context) error {
		ticks.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil on cancelled context, got %v", err)
	}
	if ticks.Load() != 0 {
		t.Fatalf("pre-cancelled loop must not tick")
	}
}
