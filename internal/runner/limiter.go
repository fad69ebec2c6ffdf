package runner

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is the admission gate bounding the aggregate request rate of a run.
// A nil or unlimited Limiter admits immediately. It is safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns a token-paced limiter for rps requests per second.
// rps <= 0 means unlimited.
func NewLimiter(rps int) *Limiter {
	var opt Options
	opt.normalize()
	return newLimiter(opt.LimiterFactory, rps)
}

func newLimiter(factory func(rps int) *rate.Limiter, rps int) *Limiter {
	if rps <= 0 || factory == nil {
		return &Limiter{}
	}
	return &Limiter{limiter: factory(rps)}
}

// Acquire blocks until a token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Unlimited reports whether the limiter never blocks.
func (l *Limiter) Unlimited() bool {
	return l == nil || l.limiter == nil
}
