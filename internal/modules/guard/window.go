package guard

import (
	"sync"
	"time"
)

// Window counts events newer than a fixed span.
type Window struct {
	mu   sync.Mutex
	span time.Duration
	hits []time.Time
}

func NewWindow(span time.Duration) *Window {
	return &Window{span: span}
}

// Add records an event at now and returns the count including it.
func (w *Window) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *Window) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.hits)
}

// prune drops hits at or before now-span. hits is in insertion order, which
// callers keep chronological.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	idx := 0
	for idx < len(w.hits) && !w.hits[idx].After(cutoff) {
		idx++
	}
	w.hits = w.hits[idx:]
}
