// Package ratelimit provides request throttling for integration endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// Result is the outcome of a rate limit check. Limited is a soft signal:
// the caller decides how to respond and whether to notify the channel owner.
type Result struct {
	Limited bool
}

// Limiter implements a sliding window rate limiter keyed per channel.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

// NewLimiter creates a limiter allowing limit requests per window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 300
	}
	if window <= 0 {
		window = 5 * time.Minute
	}

	l := &Limiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}

	go l.cleanupLoop()

	return l
}

// CheckAndConsume records a request for the key and reports whether the
// key is over its window limit.
func (l *Limiter) CheckAndConsume(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	var valid []time.Time
	for _, t := range l.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= l.limit {
		l.requests[key] = valid
		return Result{Limited: true}
	}

	l.requests[key] = append(valid, now)
	return Result{Limited: false}
}

// cleanupLoop periodically removes idle keys.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.cleanup()
	}
}

func (l *Limiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)

	for key, requests := range l.requests {
		var valid []time.Time
		for _, t := range requests {
			if t.After(windowStart) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}
