// Package cli assembles the pieces both commands share: logging, the API
// credential, tracing and the HTTP driver.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/torosent/capfire/internal/auth"
	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/httpclient"
	"github.com/torosent/capfire/internal/metrics"
	"github.com/torosent/capfire/internal/output"
	"github.com/torosent/capfire/internal/runner"
	"github.com/torosent/capfire/internal/search"
	"github.com/torosent/capfire/internal/tracing"
)

const progressInterval = time.Second

// NewLogger returns a text logger on w at the named level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// Session owns everything needed to issue runs against one target.
type Session struct {
	Driver   *runner.Driver
	Endpoint string
	Logger   *slog.Logger

	credential *auth.APIKeyProvider
	tracing    *tracing.Provider
}

// Open resolves the credential and builds the HTTP driver for common.
// maxConcurrency sizes the idle connection pool.
func Open(ctx context.Context, common config.Common, maxConcurrency int, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	credential, err := auth.FromConfig(common.Auth)
	if err != nil {
		return nil, err
	}

	tp, err := tracing.Init(ctx, common.Tracing)
	if err != nil {
		credential.Close()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	builder, err := httpclient.NewRequestBuilderWithAuth(common.Target, credential)
	if err != nil {
		credential.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	executor := httpclient.NewExecutor(httpclient.NewClient(maxConcurrency), builder, tp)
	endpoint := httpclient.ResolveEndpoint(common.Target)
	logger.Debug("session ready", "endpoint", endpoint, "tracing", common.Tracing.Enabled(),
		"auth_scheme", common.Auth.Scheme, "api_key_env", common.Auth.APIKeyEnv)

	return &Session{
		Driver:     runner.New(runner.Options{Executor: executor, Logger: logger}),
		Endpoint:   endpoint,
		Logger:     logger,
		credential: credential,
		tracing:    tp,
	}, nil
}

// Prober returns a prober over the session driver. With a non-nil
// progress writer each run gets its own live progress line.
func (s *Session) Prober(progress io.Writer) search.Prober {
	if progress == nil {
		return search.DriverProber(s.Driver)
	}
	return search.ProberFunc(func(ctx context.Context, cfg runner.RunConfig) (metrics.Stats, error) {
		collector := metrics.NewCollector()
		reporter := output.NewProgressReporter(collector, cfg.TotalRequests, progressInterval, progress)
		collector.Start()
		reporter.Start()
		defer reporter.Stop()
		return search.DriverProber(s.Driver, collector).Probe(ctx, cfg)
	})
}

// Close flushes pending spans and releases the credential.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.tracing != nil {
		if err := s.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if s.credential != nil {
		errs = append(errs, s.credential.Close())
	}
	return errors.Join(errs...)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
