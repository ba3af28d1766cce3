// Package ratelimit implements a per-user token bucket rate limiter.
// Thread-safe; buckets refill lazily on each Allow call, so there are no
// background goroutines.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a user has exhausted their token bucket.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config configures the token bucket rate limiter.
type Config struct {
	RequestsPerMinute int // Tokens added per minute. 0 = unlimited.
	BurstSize         int // Maximum tokens in bucket. 0 = defaults to RequestsPerMinute.
}

// Limiter is a per-user token bucket rate limiter. Each user gets an
// independent bucket; one user cannot exhaust another's quota.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	perSec  float64
	cap     float64
	clock   func() time.Time
}

type bucket struct {
	remaining float64
	refilled  time.Time
}

// NewLimiter creates a rate limiter. With RequestsPerMinute == 0, Allow
// always succeeds.
func NewLimiter(cfg Config) *Limiter {
	capacity := cfg.BurstSize
	if capacity <= 0 {
		capacity = cfg.RequestsPerMinute
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		perSec:  float64(cfg.RequestsPerMinute) / 60.0,
		cap:     float64(capacity),
		clock:   time.Now,
	}
}

// Allow consumes one token for the user, or returns ErrRateLimited when
// the bucket is empty.
func (l *Limiter) Allow(userID string) error {
	if l.perSec <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{remaining: l.cap, refilled: now}
		l.buckets[userID] = b
	} else {
		b.remaining += now.Sub(b.refilled).Seconds() * l.perSec
		if b.remaining > l.cap {
			b.remaining = l.cap
		}
		b.refilled = now
	}

	if b.remaining < 1 {
		return ErrRateLimited
	}
	b.remaining--
	return nil
}
