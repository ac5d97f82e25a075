package clients

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a windowed counting limiter shared by the API clients to
// stay inside the remote systems' request budgets.
type RateLimiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	timestamps  []time.Time
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
	}
}

// Acquire blocks until a request slot is available or the context ends.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-r.window)

		kept := r.timestamps[:0]
		for _, ts := range r.timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		r.timestamps = kept

		if len(r.timestamps) < r.maxRequests {
			r.timestamps = append(r.timestamps, now)
			r.mu.Unlock()
			return nil
		}

		wait := r.window - now.Sub(r.timestamps[0]) + 100*time.Millisecond
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
