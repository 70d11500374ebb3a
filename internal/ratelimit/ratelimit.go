// Package ratelimit implements a per-key token-bucket window, used both
// by the Hub (WebSocket upgrade requests, keyed by remote address) and by the Room's
// Arbitration Service (spec.md §4.4's MAX_MATCH_ATTEMPTS_PER_SECOND).
package ratelimit

import "sync"

// Config describes one rate-limit preset: at most MaxRequests within
// every WindowMs.
type Config struct {
	WindowMs    int64
	MaxRequests int
}

type entry struct {
	count     int
	resetAtMs int64
}

// Limiter is a per-key token bucket. The zero value is not usable; use
// New.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]*entry
	cfg     Config
	nowFunc func() int64
}

// New creates a Limiter for the given preset. nowFunc defaults to the
// wall clock; tests may override it via NewWithClock.
func New(cfg Config) *Limiter {
	return NewWithClock(cfg, defaultNow)
}

// NewWithClock creates a Limiter using a caller-supplied millisecond
// clock, so rate-limit tests don't depend on real time.
func NewWithClock(cfg Config, nowFunc func() int64) *Limiter {
	return &Limiter{
		limits:  make(map[string]*entry),
		cfg:     cfg,
		nowFunc: nowFunc,
	}
}

// Allow reports whether the key may proceed, consuming a token if so.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	e, ok := l.limits[key]
	if !ok || now >= e.resetAtMs {
		l.limits[key] = &entry{count: 1, resetAtMs: now + l.cfg.WindowMs}
		return true
	}
	if e.count >= l.cfg.MaxRequests {
		return false
	}
	e.count++
	return true
}

// Forget drops any bucket state tracked for key, e.g. on disconnect.
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limits, key)
	l.mu.Unlock()
}

// Cleanup evicts expired buckets; intended to be called periodically by
// a housekeeping goroutine so the map doesn't grow unbounded.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFunc()
	for key, e := range l.limits {
		if now >= e.resetAtMs {
			delete(l.limits, key)
		}
	}
}
