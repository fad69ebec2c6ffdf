package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/capfire/internal/metrics"
)

// ErrInvalidRunConfig is returned when a RunConfig cannot be executed.
var ErrInvalidRunConfig = errors.New("invalid run config")

// Executor performs a single request and reports its outcome.
// Implementations must honor the timeout themselves; the pool never abandons a request.
type Executor interface {
	Execute(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome

func (f ExecutorFunc) Execute(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome {
	return f(ctx, endpoint, timeout)
}

// Observer receives outcomes in completion order while a run is in flight.
// Observers are called from a single goroutine.
type Observer interface {
	Observe(o metrics.Outcome)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(o metrics.Outcome)

func (f ObserverFunc) Observe(o metrics.Outcome) { f(o) }

// RunConfig fully specifies one driver run.
type RunConfig struct {
	Endpoint      string
	TotalRequests int
	Concurrency   int           // maximum in-flight requests
	TargetRPS     int           // aggregate admission rate (0 means unlimited)
	Timeout       time.Duration // per-request timeout
}

// Validate reports every problem with the config at once.
func (c RunConfig) Validate() error {
	var issues []string
	if strings.TrimSpace(c.Endpoint) == "" {
		issues = append(issues, "endpoint is required")
	}
	if c.TotalRequests < 0 {
		issues = append(issues, "total requests must be >= 0")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.TargetRPS < 0 {
		issues = append(issues, "rps must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRunConfig, strings.Join(issues, "; "))
	}
	return nil
}

// Label is a short description used in reports.
func (c RunConfig) Label() string {
	rps := "unlimited"
	if c.TargetRPS > 0 {
		rps = fmt.Sprintf("%d", c.TargetRPS)
	}
	return fmt.Sprintf("Concurrency=%d, RPS=%s", c.Concurrency, rps)
}

// Options configure the Driver.
type Options struct {
	Executor       Executor                    // request executor (required)
	Logger         *slog.Logger                // optional; discards when nil
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst of one keeps any rolling second within rps+1 admissions.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
