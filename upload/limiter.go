package upload

import (
	"context"
	"sync"
	"time"
)

// rateLimiter caps outbound requests per second across all workers so the
// engine respects backend quotas. A zero limit disables the cap.
type rateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		limit:  requestsPerSecond,
		window: time.Second,
	}
}

// Wait blocks until a request slot is available or the context ends.
func (r *rateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.limit <= 0 {
		return nil
	}

	for {
		r.mu.Lock()
		now := time.Now()
		if r.windowStart.IsZero() || now.Sub(r.windowStart) >= r.window {
			r.windowStart = now
			r.count = 0
		}
		if r.count < r.limit {
			r.count++
			r.mu.Unlock()
			return nil
		}
		wait := r.windowStart.Add(r.window).Sub(now)
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
