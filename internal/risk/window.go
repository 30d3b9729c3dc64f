package risk

import "time"

// Collapse policy: compare against the book roughly five seconds ago, keep
// no more history than twelve seconds.
const (
	collapseLookback  = 5 * time.Second
	collapseRetention = 12 * time.Second
)

type sample struct {
	at       time.Time
	notional float64
}

// Window is the trailing order-book notional history behind the Collapse-5s
// signal. It is owned by a single tick loop; growth is bounded by pruning on
// every append.
type Window struct {
	samples []sample
}

// Observe appends the current total notional and reports the percentage
// change against the first retained sample at least the lookback older than
// now. The reading is undefined until the window is deep enough, or when
// the reference sample's notional was non-positive.
func (w *Window) Observe(now time.Time, notional float64) (float64, bool) {
	w.samples = append(w.samples, sample{at: now, notional: notional})
	cutoff := now.Add(-collapseRetention)
	trim := 0
	for trim < len(w.samples) && w.samples[trim].at.Before(cutoff) {
		trim++
	}
	if trim > 0 {
		w.samples = append(w.samples[:0], w.samples[trim:]...)
	}
	// Scan from the newest backwards: the reference is the youngest sample
	// at least the lookback old, keeping the comparison pinned near five
	// seconds even when the window holds deeper history.
	for i := len(w.samples) - 1; i >= 0; i-- {
		s := w.samples[i]
		if now.Sub(s.at) < collapseLookback {
			continue
		}
		if s.notional <= 0 {
			return 0, false
		}
		return (notional - s.notional) / s.notional * 100, true
	}
	return 0, false
}

// Len reports the retained sample count.
func (w *Window) Len() int {
	return len(w.samples)
}

// Span reports the age of the oldest retained sample relative to the newest.
func (w *Window) Span() time.Duration {
	if len(w.samples) < 2 {
		return 0
	}
	return w.samples[len(w.samples)-1].at.Sub(w.samples[0].at)
}
