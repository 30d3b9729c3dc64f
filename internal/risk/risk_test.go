package risk

import (
	"math"
	"testing"
	"time"

	"bg-scalp-bot/internal/market"
)

func TestSpreadBps(t *testing.T) {
	spr, ok := SpreadBps(99.95, 100.05)
	if !ok {
		t.Fatalf("expected defined spread")
	}
	if math.Abs(spr-10.0) > 1e-9 {
		t.Fatalf("expected 10 bps, got %f", spr)
	}
}

func TestSpreadBpsUndefined(t *testing.T) {
	if _, ok := SpreadBps(0, 100); ok {
		t.Fatalf("zero bid must be undefined")
	}
	if _, ok := SpreadBps(100, -1); ok {
		t.Fatalf("negative ask must be undefined")
	}
}

func TestDivergence(t *testing.T) {
	div, ok := Divergence(100, 100.5)
	if !ok || math.Abs(div-0.5) > 1e-9 {
		t.Fatalf("expected 0.5%%, got %f ok=%t", div, ok)
	}
	if _, ok := Divergence(0, 100); ok {
		t.Fatalf("non-positive spot must be undefined")
	}
	if _, ok := Divergence(100, 0); ok {
		t.Fatalf("missing futures price must be undefined")
	}
}

func TestWindowCollapseSequence(t *testing.T) {
	var w Window
	start := time.Unix(1_700_000_000, 0)
	// Strictly increasing notional, one sample per second for 20 seconds.
	for i := 0; i < 20; i++ {
		now := start.Add(time.Duration(i) * time.Second)
		notional := 1000.0 + float64(i)*10
		col, ok := w.Observe(now, notional)
		if i < 5 {
			if ok {
				t.Fatalf("sample %d: no reference 5s back yet, got %f", i, col)
			}
			continue
		}
		if !ok {
			t.Fatalf("sample %d: expected a collapse reading", i)
		}
		// Reference is the sample exactly 5 seconds prior.
		ref := 1000.0 + float64(i-5)*10
		want := (notional - ref) / ref * 100
		if math.Abs(col-want) > 1e-9 {
			t.Fatalf("sample %d: expected %f, got %f", i, want, col)
		}
		if span := w.Span(); span > 12*time.Second {
			t.Fatalf("sample %d: window retains %v of history", i, span)
		}
	}
	// 12s retention at 1s cadence keeps at most 13 samples.
	if w.Len() > 13 {
		t.Fatalf("expected bounded window, got %d samples", w.Len())
	}
}

func TestWindowDropReading(t *testing.T) {
	var w Window
	start := time.Unix(1_700_000_000, 0)
	for i := 0; i < 6; i++ {
		w.Observe(start.Add(time.Duration(i)*time.Second), 1000)
	}
	col, ok := w.Observe(start.Add(6*time.Second), 700)
	if !ok {
		t.Fatalf("expected defined collapse")
	}
	if math.Abs(col-(-30)) > 1e-9 {
		t.Fatalf("expected -30%%, got %f", col)
	}
}

func TestWindowNonPositiveReferenceUndefined(t *testing.T) {
	var w Window
	start := time.Unix(1_700_000_000, 0)
	w.Observe(start, 0)
	if _, ok := w.Observe(start.Add(6*time.Second), 500); ok {
		t.Fatalf("non-positive reference notional must be undefined")
	}
}

func TestAssessAllBreachCombinations(t *testing.T) {
	th := Thresholds{SpreadBpsWarn: 600, DivergencePctWarn: 0.5, CollapsePctWarn: -20}
	for mask := 0; mask < 8; mask++ {
		spreadBreaches := mask&1 != 0
		divBreaches := mask&2 != 0
		collapseBreaches := mask&4 != 0

		sig := Signals{HasSpread: true, HasDivergence: true, HasCollapse: true}
		if spreadBreaches {
			sig.SpreadBps = 700
		} else {
			sig.SpreadBps = 100
		}
		if divBreaches {
			sig.DivergencePct = -0.9 // breaches on absolute value
		} else {
			sig.DivergencePct = 0.1
		}
		if collapseBreaches {
			sig.CollapsePct = -45
		} else {
			sig.CollapsePct = -5
		}

		wantScore := 0
		for _, b := range []bool{spreadBreaches, divBreaches, collapseBreaches} {
			if b {
				wantScore++
			}
		}
		got := th.Assess(sig)
		if got.Score != wantScore {
			t.Fatalf("mask %03b: expected score %d, got %d", mask, wantScore, got.Score)
		}
		if got.Alert != (wantScore >= 2) {
			t.Fatalf("mask %03b: expected alert=%t at score %d", mask, wantScore >= 2, wantScore)
		}
	}
}

func TestAssessIgnoresUndefinedSignals(t *testing.T) {
	th := Thresholds{SpreadBpsWarn: 600, DivergencePctWarn: 0.5, CollapsePctWarn: -20}
	sig := Signals{
		SpreadBps:     10_000, // would breach, but undefined
		DivergencePct: 5,
		HasDivergence: true,
		CollapsePct:   -90,
		HasCollapse:   false,
	}
	got := th.Assess(sig)
	if got.Score != 1 || got.Alert {
		t.Fatalf("undefined signals must not score: %+v", got)
	}
}

func TestEvaluatorEndToEnd(t *testing.T) {
	ev := NewEvaluator(Thresholds{SpreadBpsWarn: 10, DivergencePctWarn: 0.4, CollapsePctWarn: -20})
	start := time.Unix(1_700_000_000, 0)

	snap := market.Snapshot{
		SpotPrice: 100, HasSpot: true,
		FuturesPrice: 100.5, HasFutures: true,
		BestBid: 99.9, HasBid: true,
		BestAsk: 100.1, HasAsk: true,
		BookNotional: 1000, HasNotional: true,
	}
	got := ev.Evaluate(start, snap)
	if !got.Signals.HasSpread || !got.Signals.HasDivergence {
		t.Fatalf("expected spread and divergence defined: %+v", got.Signals)
	}
	if got.Signals.HasCollapse {
		t.Fatalf("collapse needs history, got %+v", got.Signals)
	}
	if got.Score != 2 || !got.Alert {
		t.Fatalf("spread 20bps and divergence 0.5%% must both breach: %+v", got)
	}

	// Six seconds later with a collapsed book, all three breach.
	snap.BookNotional = 100
	got = ev.Evaluate(start.Add(6*time.Second), snap)
	if got.Score != 3 || !got.Alert {
		t.Fatalf("expected full breach, got %+v", got)
	}
}
