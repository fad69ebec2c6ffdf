// Package runner provides the load generation engine for capfire.
//
// The runner package executes a fixed number of requests against one endpoint:
//   - At most Concurrency requests in flight ([Pool])
//   - Optional aggregate rate limit in requests per second ([Limiter])
//   - Outcome aggregation into [metrics.Stats] ([Driver])
//
// # Basic Usage
//
// Create a driver with an executor, then run a config:
//
//	d := runner.New(runner.Options{Executor: myExecutor})
//	stats, err := d.Run(ctx, runner.RunConfig{
//		Endpoint:      "https://api.example.com/v4/search/",
//		TotalRequests: 100,
//		Concurrency:   10,
//		TargetRPS:     0,
//		Timeout:       30 * time.Second,
//	})
//
// # Executor Interface
//
// The [Executor] interface performs one request and classifies its result:
//
//	type Executor interface {
//		Execute(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome
//	}
//
// Executors never retry. A failed request is recorded as failed.
//
// # Rate Limiting
//
// The [Limiter] is a token bucket with a burst of one, created fresh for each
// run. Admission happens in a single scheduler goroutine that hands permits to
// the workers, so the admission rate never exceeds the target by more than
// one token in any rolling second.
//
// # Streaming
//
// Workers hand outcomes to the driver over a channel. The driver is the only
// goroutine that touches the outcome set, and forwards each outcome to any
// [Observer] (for example a live progress collector) as it arrives.
package runner
