// Package ratelimit paces outbound API requests with a token bucket.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Default bucket parameters.
const (
	DefaultCapacity = 5
	DefaultRefill   = 1.0
)

// Limiter is a token bucket shared by every request of a crawl.
// The bucket starts full, so the first capacity calls to Acquire return
// immediately; after that callers are paced at the refill rate.
// It is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter holding up to capacity tokens, refilled at refill
// tokens per second. Non-positive arguments fall back to the defaults.
func New(capacity int, refill float64) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if refill <= 0 {
		refill = DefaultRefill
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(refill), capacity)}
}

// Acquire blocks until one token is available and consumes it.
// It returns an error only when ctx is cancelled first, or when the wait
// would outlast the ctx deadline.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
