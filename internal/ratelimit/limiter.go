// Package ratelimit provides sliding window rate limiting for outbound
// provider requests, with a local in-memory limiter and an optional
// Redis-backed one for multi-instance deployments.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after"`
}

// Limiter checks whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
	Close() error
}

// NoopLimiter allows everything. Used when rate limiting is disabled.
type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	return &Decision{Allowed: true, Limit: 0, Remaining: 0}, nil
}

func (NoopLimiter) Close() error { return nil }

// LocalLimiter is an in-memory sliding window limiter.
type LocalLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	history map[string][]time.Time
	now     func() time.Time
}

// NewLocalLimiter creates a limiter allowing limit requests per window.
func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		limit:   limit,
		window:  window,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records the request when it fits into the window and reports the
// decision. Denied requests are not recorded.
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	timestamps := l.history[key]
	live := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.limit {
		l.history[key] = live
		return &Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: live[0].Add(l.window).Sub(now),
		}, nil
	}

	live = append(live, now)
	l.history[key] = live
	return &Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(live),
	}, nil
}

// Close releases the limiter's state.
func (l *LocalLimiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = make(map[string][]time.Time)
	return nil
}
