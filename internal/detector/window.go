package detector

import (
	"sync"

	"dealer-scan/internal/domain"
)

// Window groups trade events by second and mint. It is safe for
// concurrent use.
type Window struct {
	mu      sync.RWMutex
	buckets map[int64]map[string][]domain.TradeEvent
}

// NewWindow creates an empty window.
func NewWindow() *Window {
	return &Window{buckets: make(map[int64]map[string][]domain.TradeEvent)}
}

// Add appends ev to its (timestamp, mint) bucket, preserving arrival order.
func (w *Window) Add(ev domain.TradeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	mints, ok := w.buckets[ev.Timestamp]
	if !ok {
		mints = make(map[string][]domain.TradeEvent)
		w.buckets[ev.Timestamp] = mints
	}
	mints[ev.Mint] = append(mints[ev.Mint], ev)
}

// Drain calls eval for every mint of every bucket with timestamp <= cutoff
// and removes those buckets. Evaluation and removal happen under one write
// lock, so a bucket is evaluated exactly once. Returns the number of buckets
// removed.
func (w *Window) Drain(cutoff int64, eval func(ts int64, mint string, events []domain.TradeEvent)) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for ts, mints := range w.buckets {
		if ts > cutoff {
			continue
		}
		for mint, events := range mints {
			eval(ts, mint, events)
		}
		delete(w.buckets, ts)
		removed++
	}
	return removed
}

// Len returns the number of live buckets.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.buckets)
}

// Events returns a copy of the events in a bucket.
func (w *Window) Events(ts int64, mint string) []domain.TradeEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	events := w.buckets[ts][mint]
	if len(events) == 0 {
		return nil
	}
	out := make([]domain.TradeEvent, len(events))
	copy(out, events)
	return out
}
