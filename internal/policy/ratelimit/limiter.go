// Package ratelimit implements a fixed-window token bucket for per-domain request budgets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/JakeFAU/crawlgate/internal/clock/system"
)

// DefaultWindow is the refill window of a bucket.
const DefaultWindow = time.Minute

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Bucket is the per-domain budget state.
//
// Capacity is the quota passed with the most recent Allow call. Tokens are not
// clamped when the quota drops mid-window, so Tokens can exceed Capacity until
// the next refill.
type Bucket struct {
	Tokens     int
	LastRefill time.Time
	Capacity   int
}

// Config holds rate limiter configuration.
type Config struct {
	// Window is the length of a refill window. Zero means DefaultWindow.
	Window time.Duration
	// Clock defaults to the system clock.
	Clock Clock
}

// Limiter manages per-domain request budgets.
//
// Each domain gets a bucket on its first request, filled to the quota passed
// with that request. Once a full window has elapsed since the last refill the
// bucket is reset to the current quota. Windows are anchored per domain at
// first use, not aligned to the wall clock, and tokens are never leaked back
// proportionally.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]Bucket
	window  time.Duration
	clock   Clock
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	clk := cfg.Clock
	if clk == nil {
		clk = system.New()
	}
	return &Limiter{
		buckets: make(map[string]Bucket),
		window:  window,
		clock:   clk,
	}
}

// Allow reports whether one more request for domain fits into the current
// window and consumes a token if so. perMinute is the quota to apply; a
// changed quota takes effect at the next refill. A non-positive quota denies
// without touching the bucket.
func (l *Limiter) Allow(domain string, perMinute int) bool {
	if perMinute <= 0 {
		return false
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, exists := l.buckets[domain]
	if !exists {
		bucket = Bucket{Tokens: perMinute, LastRefill: now, Capacity: perMinute}
	}
	if now.Sub(bucket.LastRefill) >= l.window {
		bucket.Tokens = perMinute
		bucket.LastRefill = now
	}
	bucket.Capacity = perMinute
	if bucket.Tokens <= 0 {
		l.buckets[domain] = bucket
		return false
	}
	bucket.Tokens--
	l.buckets[domain] = bucket
	return true
}

// Snapshot returns a copy of the bucket for domain.
func (l *Limiter) Snapshot(domain string) (Bucket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bucket, ok := l.buckets[domain]
	return bucket, ok
}

// Len returns the number of tracked domains.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
