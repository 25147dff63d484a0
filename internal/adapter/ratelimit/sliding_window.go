package ratelimit

import (
	"sync"
	"time"
)

// slidingWindow counts events inside a trailing time window. Expired
// timestamps are pruned on every Allow call, so memory stays proportional to
// the limit.
type slidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	events []time.Time
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		window: window,
		limit:  limit,
		events: make([]time.Time, 0, limit),
	}
}

// Allow records the event and returns true when the window has capacity.
// Denied calls are not recorded.
func (w *slidingWindow) Allow(now time.Time) (bool, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)

	if len(w.events) >= w.limit {
		return false, 0
	}
	w.events = append(w.events, now)
	return true, w.limit - len(w.events)
}

// RetryAfter reports how long until the oldest event falls out of the window.
func (w *slidingWindow) RetryAfter(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	if len(w.events) < w.limit || len(w.events) == 0 {
		return 0
	}
	return w.events[0].Add(w.window).Sub(now)
}

func (w *slidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.events)
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.events) && !w.events[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.events = append(w.events[:0], w.events[i:]...)
	}
}
