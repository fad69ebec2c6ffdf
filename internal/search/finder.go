package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/metrics"
	"github.com/torosent/capfire/internal/runner"
)

// Prober executes one run and returns its statistics.
type Prober interface {
	Probe(ctx context.Context, cfg runner.RunConfig) (metrics.Stats, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, cfg runner.RunConfig) (metrics.Stats, error)

func (f ProberFunc) Probe(ctx context.Context, cfg runner.RunConfig) (metrics.Stats, error) {
	return f(ctx, cfg)
}

// DriverProber probes through a runner.Driver, forwarding outcomes to the
// given observers.
func DriverProber(d *runner.Driver, observers ...runner.Observer) Prober {
	return ProberFunc(func(ctx context.Context, cfg runner.RunConfig) (metrics.Stats, error) {
		return d.Run(ctx, cfg, observers...)
	})
}

// Hooks receive progress notifications. Any field may be nil.
type Hooks struct {
	BeforeProbe func(concurrency int)
	AfterProbe  func(p Probe)
}

// Result is the outcome of a search.
type Result struct {
	Method            config.SearchMethod `json:"method" yaml:"method"`
	Start             int                 `json:"start" yaml:"start"`
	Max               int                 `json:"max" yaml:"max"`
	Threshold         float64             `json:"threshold" yaml:"threshold"`
	BestKnownGood     int                 `json:"max_concurrency" yaml:"max_concurrency"`
	Found             bool                `json:"found" yaml:"found"`
	CeilingUnknown    bool                `json:"ceiling_unknown" yaml:"ceiling_unknown"`
	IterationLimitHit bool                `json:"iteration_limit_hit" yaml:"iteration_limit_hit"`
	Iterations        int                 `json:"iterations" yaml:"iterations"`
	History           []Probe             `json:"history" yaml:"history"`
	Elapsed           time.Duration       `json:"-" yaml:"-"`
	ElapsedSeconds    float64             `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Verification      *Probe              `json:"verification,omitempty" yaml:"verification,omitempty"`
}

// Finder runs searches. It keeps no state between searches.
type Finder struct {
	prober Prober
	logger *slog.Logger
	hooks  Hooks
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewFinder creates a finder probing through p. A nil logger discards logs.
func NewFinder(p Prober, logger *slog.Logger, hooks Hooks) *Finder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{prober: p, logger: logger, hooks: hooks, sleep: sleepContext}
}

// Find searches for the highest passing concurrency level.
func (f *Finder) Find(ctx context.Context, opt Options) (Result, error) {
	opt.normalize()
	if err := opt.Validate(); err != nil {
		return Result{}, err
	}
	if f.prober == nil {
		return Result{}, fmt.Errorf("%w: prober is required", ErrInvalidOptions)
	}

	started := time.Now()
	res := Result{Method: opt.Method, Start: opt.Start, Max: opt.Max, Threshold: opt.Threshold}

	var err error
	switch opt.Method {
	case config.SearchMethodLinear:
		err = f.linear(ctx, opt, &res)
	default:
		err = f.binary(ctx, opt, &res)
	}
	if err == nil && opt.Verify && res.Found {
		err = f.verify(ctx, opt, &res)
	}

	res.Iterations = len(res.History)
	res.Elapsed = time.Since(started)
	res.ElapsedSeconds = res.Elapsed.Seconds()
	if err != nil {
		return res, err
	}
	f.logger.Info("search finished", "method", opt.Method, "found", res.Found,
		"max_concurrency", res.BestKnownGood, "iterations", res.Iterations, "elapsed", res.Elapsed)
	return res, nil
}

func (f *Finder) binary(ctx context.Context, opt Options, res *Result) error {
	state := newBinaryState(opt.Start, opt.Max)
	for !state.Done() {
		if state.Iterations >= opt.MaxIterations {
			res.IterationLimitHit = true
			f.logger.Warn("binary search stopped at iteration limit", "limit", opt.MaxIterations,
				"lower", state.Lower, "upper", state.Upper)
			break
		}
		if err := f.pause(ctx, opt, state.Iterations); err != nil {
			f.finish(res, state)
			return err
		}
		p, err := f.probe(ctx, opt, state.Next(), opt.Requests)
		if err != nil {
			f.finish(res, state)
			return err
		}
		state.Record(p)
	}
	f.finish(res, state)
	res.CeilingUnknown = res.Found && state.Upper > opt.Max
	return nil
}

func (f *Finder) finish(res *Result, state *State) {
	res.History = state.History
	res.BestKnownGood = state.BestKnownGood
	res.Found = state.Found
}

func (f *Finder) linear(ctx context.Context, opt Options, res *Result) error {
	failedAbove := false
	for level := opt.Start; level <= opt.Max; level += opt.Step {
		if err := f.pause(ctx, opt, len(res.History)); err != nil {
			return err
		}
		p, err := f.probe(ctx, opt, level, opt.Requests)
		if err != nil {
			return err
		}
		res.History = append(res.History, p)
		if p.Passed {
			res.BestKnownGood = level
			res.Found = true
			failedAbove = false
			continue
		}
		failedAbove = true
		if opt.StopOnFailure {
			break
		}
	}
	res.CeilingUnknown = res.Found && !failedAbove
	return nil
}

func (f *Finder) verify(ctx context.Context, opt Options, res *Result) error {
	if err := f.pause(ctx, opt, 1); err != nil {
		return err
	}
	p, err := f.probe(ctx, opt, res.BestKnownGood, opt.Requests*2)
	if err != nil {
		return err
	}
	res.Verification = &p
	if !p.Passed {
		f.logger.Warn("verification run did not meet the threshold", "concurrency", p.Concurrency,
			"success_rate", p.Stats.SuccessPercent())
	}
	return nil
}

func (f *Finder) probe(ctx context.Context, opt Options, level, requests int) (Probe, error) {
	if f.hooks.BeforeProbe != nil {
		f.hooks.BeforeProbe(level)
	}
	stats, err := f.prober.Probe(ctx, runner.RunConfig{
		Endpoint:      opt.Endpoint,
		TotalRequests: requests,
		Concurrency:   level,
		Timeout:       opt.Timeout,
	})
	if err != nil {
		return Probe{}, fmt.Errorf("%w at concurrency %d: %w", ErrSearchAborted, level, err)
	}
	p := Probe{Concurrency: level, Stats: stats, Passed: passes(opt, stats)}
	f.logger.Debug("probe finished", "concurrency", level, "success_rate", stats.SuccessPercent(), "passed", p.Passed)
	if f.hooks.AfterProbe != nil {
		f.hooks.AfterProbe(p)
	}
	return p, nil
}

// passes is the per-level verdict: the success rate meets the threshold and
// every SLA criterion holds.
func passes(opt Options, stats metrics.Stats) bool {
	return stats.SuccessPercent() >= opt.Threshold && opt.Criteria.Passes(stats)
}

// pause waits between probes; the first probe starts immediately.
func (f *Finder) pause(ctx context.Context, opt Options, done int) error {
	if done == 0 || opt.Pause <= 0 {
		return nil
	}
	if err := f.sleep(ctx, opt.Pause); err != nil {
		return fmt.Errorf("%w: %w", ErrSearchAborted, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
