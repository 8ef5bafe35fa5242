package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// SignalLimiter throttles heartbeat-signal pings with one token bucket per
// channel. Pings are high-frequency fire-and-forget requests, so a bucket
// with burst headroom fits them better than the sliding window used for
// alert payloads.
type SignalLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewSignalLimiter creates a limiter allowing rps sustained pings per
// channel with the given burst.
func NewSignalLimiter(rps float64, burst int) *SignalLimiter {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 10
	}
	return &SignalLimiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// CheckAndConsume consumes one token for the key.
func (l *SignalLimiter) CheckAndConsume(key string) Result {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return Result{Limited: !bucket.Allow()}
}
