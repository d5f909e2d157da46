// Package ratelimit provides a fixed-window in-memory rate limiter for the
// Relay server's publish endpoint. It implements relay.AdmissionController.
package ratelimit

import (
	"sync"
	"time"
)

// window tracks request counts for one admission key.
type window struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window rate limiter keyed by admission key
// (API key or remote address). Counters reset every window.
//
// State lives in process memory, so limits apply per server instance.
//
// Thread safety: Safe for concurrent use.
type Limiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewLimiter creates a limiter allowing limit requests per interval for each
// key. A limit of 0 or less disables limiting.
func NewLimiter(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// Allow reports whether a request under the given key may proceed, counting
// it against the key's current window.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.interval)}
		return true
	}

	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Prune drops expired windows. Call periodically to bound memory on servers
// with many distinct keys.
func (l *Limiter) Prune() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Run prunes expired windows every interval until done is closed.
func (l *Limiter) Run(done <-chan struct{}) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.Prune()
		}
	}
}
