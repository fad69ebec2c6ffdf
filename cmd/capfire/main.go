package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/capfire/internal/cli"
	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/output"
	"github.com/torosent/capfire/internal/runner"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.NewLoader().LoadTest(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cli.NewLogger(stderr, cfg.Output.LogLevel)
	if err != nil {
		return err
	}

	pairs := cfg.Pairs()
	sess, err := cli.Open(ctx, cfg.Common, maxConcurrency(pairs), logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sess.Close(shutdownCtx); err != nil {
			logger.Warn("session close failed", "error", err)
		}
	}()

	human := !cfg.Output.JSONOutput
	var progress io.Writer
	if human && !cfg.Output.NoProgress {
		progress = stdout
	}
	prober := sess.Prober(progress)

	results := output.LoadTestResults{
		ID:        output.NewID(),
		StartedAt: time.Now(),
		Endpoint:  sess.Endpoint,
		Requests:  cfg.Requests,
	}
	if human {
		output.PrintHeader(stdout, output.RunHeader{
			Title:     "HTTP Load Test",
			Endpoint:  sess.Endpoint,
			Requests:  cfg.Requests,
			Timeout:   cfg.Target.Timeout,
			StartedAt: results.StartedAt,
		})
	}

	var summaries []output.RunSummary
	for i, pair := range pairs {
		if i > 0 {
			if err := cli.Sleep(ctx, cfg.Pause); err != nil {
				return err
			}
		}
		rc := runner.RunConfig{
			Endpoint:      sess.Endpoint,
			TotalRequests: cfg.Requests,
			Concurrency:   pair.Concurrency,
			TargetRPS:     pair.RPS,
			Timeout:       cfg.Target.Timeout,
		}
		label := rc.Label()
		if human {
			fmt.Fprintf(stdout, "\nRunning: %s\n", label)
		}
		stats, err := prober.Probe(ctx, rc)
		if err != nil {
			return err
		}
		logger.Info("run complete", "label", label, "success_rate", stats.SuccessRate, "p95_ms", stats.P95Ms)
		if human {
			output.PrintReport(stdout, label, stats)
		}
		summaries = append(summaries, output.RunSummary{Label: label, Stats: stats})
		results.Runs = append(results.Runs, output.RunRecord{
			Label:       label,
			Concurrency: pair.Concurrency,
			RPS:         pair.RPS,
			Stats:       stats,
		})
	}

	if human {
		if len(summaries) > 1 {
			output.PrintComparison(stdout, summaries)
		}
	} else if err := output.PrintJSON(stdout, results); err != nil {
		return err
	}

	if cfg.Output.OutputFile != "" {
		if err := output.WriteResultsFile(cfg.Output.OutputFile, results); err != nil {
			return err
		}
		logger.Info("results written", "path", cfg.Output.OutputFile)
	}
	return nil
}

func maxConcurrency(pairs []config.Pair) int {
	highest := 1
	for _, p := range pairs {
		highest = max(highest, p.Concurrency)
	}
	return highest
}
