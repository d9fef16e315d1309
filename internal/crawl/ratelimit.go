package crawl

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum spacing between requests to the same domain.
// Waiting on one domain never delays fetches to a different domain.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	delay    time.Duration
}

func NewRateLimiter(delay time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		delay:    delay,
	}
}

// Wait suspends the caller until it is safe to issue the next request to
// domain, or until the context is done.
func (r *RateLimiter) Wait(ctx context.Context, domain string) error {
	if r.delay <= 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	limiter, ok := r.limiters[domain]
	if !ok {
		// Burst 1 with one event per delay interval: consecutive requests to
		// the same domain are spaced at least `delay` apart.
		limiter = rate.NewLimiter(rate.Every(r.delay), 1)
		r.limiters[domain] = limiter
	}
	r.mu.Unlock()

	return limiter.Wait(ctx)
}
