package runner

import (
	"context"
	"sync"

	"github.com/torosent/capfire/internal/metrics"
)

// Pool runs a fixed number of requests with a bounded number in flight.
type Pool struct {
	cfg      RunConfig
	limiter  *Limiter
	executor Executor
}

// NewPool creates a pool for cfg. A nil limiter admits immediately.
func NewPool(cfg RunConfig, limiter *Limiter, executor Executor) *Pool {
	return &Pool{cfg: cfg, limiter: limiter, executor: executor}
}

// Run starts the pool and streams every outcome as it completes. The channel
// is closed once all admitted requests have finished. Unless ctx is cancelled,
// exactly cfg.TotalRequests outcomes are delivered.
func (p *Pool) Run(ctx context.Context) <-chan metrics.Outcome {
	concurrency := p.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	out := make(chan metrics.Outcome, concurrency)
	permits := make(chan struct{})

	// Scheduler: serializes rate limiting to avoid burst overshoot across workers.
	go func() {
		defer close(permits)
		for i := 0; i < p.cfg.TotalRequests; i++ {
			if err := p.limiter.Acquire(ctx); err != nil {
				return
			}
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for range permits {
				out <- p.executor.Execute(ctx, p.cfg.Endpoint, p.cfg.Timeout)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
