// Package ratelimit provides a per-key sliding-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// sweepInterval bounds how often empty keys are garbage-collected.
const sweepInterval = 5 * time.Minute

// Result is the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int           // requests left in the window after this call
	Reset     time.Duration // time until the oldest recorded request expires
}

// Limiter counts requests per key within a sliding window. Keys are
// namespaced by the caller (feature:userID) so one feature's abuse cannot
// exhaust another's quota. State is in-process only; it resets on restart,
// which is acceptable for abuse prevention.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time // injectable clock for tests
}

// New creates a Limiter.
func New() *Limiter {
	return &Limiter{
		entries:   make(map[string][]time.Time),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Check records a request under key if the window still has room.
// A denied request is not recorded, so hammering a saturated key does not
// extend the lockout.
func (l *Limiter) Check(key string, maxRequests int, window time.Duration) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	cutoff := now.Add(-window)
	kept := l.entries[key][:0]
	for _, ts := range l.entries[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= maxRequests {
		l.entries[key] = kept
		reset := window
		if len(kept) > 0 {
			reset = kept[0].Sub(cutoff)
		}
		return Result{
			Allowed:   false,
			Remaining: 0,
			Reset:     reset,
		}
	}

	kept = append(kept, now)
	l.entries[key] = kept
	return Result{
		Allowed:   true,
		Remaining: maxRequests - len(kept),
		Reset:     kept[0].Sub(cutoff),
	}
}

// maybeSweep drops empty keys. Runs opportunistically on Check so idle
// limiters do not need a background goroutine. Caller holds l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	for key, stamps := range l.entries {
		live := false
		for _, ts := range stamps {
			// Without the per-call window we only know truly empty keys;
			// anything older than the sweep interval is stale for every
			// realistic window this service uses.
			if now.Sub(ts) < sweepInterval {
				live = true
				break
			}
		}
		if !live {
			delete(l.entries, key)
		}
	}
}

// Len returns the number of tracked keys. Used by tests and metrics.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
