package provider

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until a request may proceed. Both *RateLimiter and
// *rate.Limiter from golang.org/x/time/rate satisfy it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter implements a simple sliding window rate limiter
type RateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// NewRateLimiter creates a limiter allowing maxRequests per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Wait blocks until a request can be made within the window. It only fails
// when ctx ends while waiting.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.purge(now)

	// If we're under the limit, allow the request immediately
	if len(r.requests) < r.maxRequests {
		r.requests = append(r.requests, now)
		return nil
	}

	waitTime := r.requests[0].Add(r.window).Sub(now)
	if waitTime > 0 {
		// Release the lock before sleeping
		r.mu.Unlock()
		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.mu.Lock()
			return ctx.Err()
		case <-timer.C:
		}
		r.mu.Lock()
	}

	now = time.Now()
	r.purge(now)
	r.requests = append(r.requests, now)
	return nil
}

// purge drops timestamps that fell out of the window. Callers hold r.mu.
func (r *RateLimiter) purge(now time.Time) {
	cutoff := now.Add(-r.window)
	valid := r.requests[:0]
	for _, req := range r.requests {
		if req.After(cutoff) {
			valid = append(valid, req)
		}
	}
	r.requests = valid
}
