package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/capfire/internal/metrics"
)

// Driver executes runs and aggregates their outcomes into statistics.
// A Driver holds no per-run state, so one Driver may serve many runs.
type Driver struct {
	opt Options
}

func New(opt Options) *Driver {
	opt.normalize()
	return &Driver{opt: opt}
}

// Run executes cfg and returns the statistics over every outcome. Observers
// see each outcome as it completes. Request failures are data; an error is
// returned only for an invalid config or an interrupted run.
func (d *Driver) Run(ctx context.Context, cfg RunConfig, observers ...Observer) (metrics.Stats, error) {
	if err := cfg.Validate(); err != nil {
		return metrics.Stats{}, err
	}
	if d.opt.Executor == nil {
		return metrics.Stats{}, fmt.Errorf("%w: executor is required", ErrInvalidRunConfig)
	}
	if cfg.TotalRequests == 0 {
		return metrics.Summarize(nil, 0), nil
	}

	log := d.opt.Logger.With("endpoint", cfg.Endpoint, "concurrency", cfg.Concurrency, "rps", cfg.TargetRPS)
	log.Debug("run starting", "requests", cfg.TotalRequests, "timeout", cfg.Timeout)

	limiter := newLimiter(d.opt.LimiterFactory, cfg.TargetRPS)
	pool := NewPool(cfg, limiter, d.opt.Executor)

	start := time.Now()
	outcomes := make([]metrics.Outcome, 0, cfg.TotalRequests)
	for o := range pool.Run(ctx) {
		outcomes = append(outcomes, o)
		for _, obs := range observers {
			if obs != nil {
				obs.Observe(o)
			}
		}
	}
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return metrics.Stats{}, fmt.Errorf("run interrupted after %d of %d requests: %w", len(outcomes), cfg.TotalRequests, err)
	}

	stats := metrics.Summarize(outcomes, elapsed)
	log.Debug("run finished", "elapsed", elapsed, "success_rate", stats.SuccessRate)
	return stats, nil
}
