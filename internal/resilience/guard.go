package resilience

import (
	"context"
	"time"
)

// Guard applies a breaker, a retry policy and a per-attempt timeout to calls
// against named services.
type Guard struct {
	Breakers *Breakers
	Retry    RetryPolicy
	Timeout  time.Duration
}

// NewGuard builds a guard with its own breaker registry.
func NewGuard(breaker BreakerConfig, retry RetryPolicy, timeout time.Duration) *Guard {
	return &Guard{
		Breakers: NewBreakers(breaker),
		Retry:    retry,
		Timeout:  timeout,
	}
}

// Call runs fn for service through the guard. A timed-out attempt fails with
// context.DeadlineExceeded like any transport error.
func Call[T any](ctx context.Context, g *Guard, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	b := g.Breakers.Get(service)
	return Retry(ctx, g.Retry, service, func(ctx context.Context) (T, error) {
		var zero T
		if err := b.Allow(); err != nil {
			return zero, err
		}
		callCtx := ctx
		if g.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.Timeout)
			defer cancel()
		}
		val, err := fn(callCtx)
		// Permanent errors (bad key, bad request) say nothing about the
		// service's health.
		if err != nil && !IsTransient(err) {
			b.Record(nil)
		} else {
			b.Record(err)
		}
		return val, err
	})
}
