// Package ratelimit implements a per-identity sliding-window request limiter.
//
// Unlike a token bucket, the window keeps the actual timestamps of recent
// requests, so the cap is exact: a request is rejected when the window
// already holds maxRequests timestamps younger than windowSize.
package ratelimit

import (
	"sync"
	"time"
)

// Config defines the limiter behavior.
type Config struct {
	MaxRequests int           // requests allowed per identity per window
	Window      time.Duration // sliding window size
	MaxEntries  int           // cap on tracked identities, 0 = unlimited
}

// Limiter tracks a sliding window of request timestamps per client identity.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

// New creates a limiter with sane floors applied to the config.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests < 1 {
		cfg.MaxRequests = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		cfg:     cfg,
		windows: make(map[string][]time.Time, 64),
		now:     time.Now,
	}
}

// SetClock replaces the time source, for deterministic tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records a request for key and reports whether it is within the limit.
// Rejected requests are not recorded, so probing while limited does not
// extend the penalty.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	window := l.pruneLocked(key, now)

	if len(window) >= l.cfg.MaxRequests {
		// The oldest timestamp leaving the window frees a slot.
		retryAfter = window[0].Add(l.cfg.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		l.windows[key] = window
		return false, retryAfter
	}

	if l.cfg.MaxEntries > 0 && len(l.windows) >= l.cfg.MaxEntries {
		l.sweepLocked(now)
	}

	l.windows[key] = append(window, now)
	return true, 0
}

// Remaining returns how many requests key may still make in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.pruneLocked(key, l.now())
	l.windows[key] = window
	rem := l.cfg.MaxRequests - len(window)
	if rem < 0 {
		rem = 0
	}
	return rem
}

// Sweep drops identities whose windows contain no recent timestamps.
// Called periodically by the background sweeper.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(l.now())
}

// Len returns the number of tracked identities.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// pruneLocked drops timestamps older than the window for one identity.
func (l *Limiter) pruneLocked(key string, now time.Time) []time.Time {
	window := l.windows[key]
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	return window[i:]
}

func (l *Limiter) sweepLocked(now time.Time) int {
	removed := 0
	for key := range l.windows {
		if pruned := l.pruneLocked(key, now); len(pruned) == 0 {
			delete(l.windows, key)
			removed++
		} else {
			l.windows[key] = pruned
		}
	}
	return removed
}
