package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited signals that a source's rolling-window quota is exhausted.
// Callers back off and retry on the next scheduled cycle instead of spinning.
var ErrRateLimited = errors.New("ratelimit: quota exhausted")

// Quota is a rolling-window request budget.
type Quota struct {
	Requests int
	Window   time.Duration
}

type window struct {
	quota Quota
	// timestamps of requests admitted within the current window, ascending
	stamps []time.Time
}

// Limiter throttles callers per upstream source using a rolling window.
// Safe for concurrent use; each source has its own independent quota.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*window
	def Quota
	now func() time.Time
}

// New creates a Limiter with a default quota applied to unconfigured sources.
func New(def Quota) *Limiter {
	if def.Requests <= 0 {
		def.Requests = 10
	}
	if def.Window <= 0 {
		def.Window = time.Minute
	}
	return &Limiter{m: make(map[string]*window), def: def, now: time.Now}
}

// Configure sets the quota for one source, replacing any recorded history.
func (l *Limiter) Configure(source string, q Quota) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if q.Requests <= 0 || q.Window <= 0 {
		q = l.def
	}
	l.m[source] = &window{quota: q}
}

// Allow admits one request for source if the quota permits, recording it.
// It never blocks; a false return means the caller hit the quota.
func (l *Limiter) Allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.get(source)
	now := l.now()
	l.prune(w, now)
	if len(w.stamps) >= w.quota.Requests {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Wait blocks until a slot frees up for source or ctx is done. It is the
// blocking counterpart of Allow for callers that prefer pacing over skipping.
func (l *Limiter) Wait(ctx context.Context, source string) error {
	for {
		l.mu.Lock()
		w := l.get(source)
		now := l.now()
		l.prune(w, now)
		if len(w.stamps) < w.quota.Requests {
			w.stamps = append(w.stamps, now)
			l.mu.Unlock()
			return nil
		}
		// oldest admitted request decides when the next slot opens
		wakeAt := w.stamps[0].Add(w.quota.Window)
		l.mu.Unlock()

		d := wakeAt.Sub(now)
		if d < 10*time.Millisecond {
			d = 10 * time.Millisecond
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Usage reports how many admitted requests are inside the current window.
func (l *Limiter) Usage(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.get(source)
	l.prune(w, l.now())
	return len(w.stamps)
}

func (l *Limiter) get(source string) *window {
	w, ok := l.m[source]
	if !ok {
		w = &window{quota: l.def}
		l.m[source] = w
	}
	return w
}

func (l *Limiter) prune(w *window, now time.Time) {
	cut := now.Add(-w.quota.Window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cut) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
