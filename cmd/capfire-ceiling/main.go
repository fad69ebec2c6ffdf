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
	"github.com/torosent/capfire/internal/search"
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
	cfg, err := config.NewLoader().LoadSearch(args)
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

	sess, err := cli.Open(ctx, cfg.Common, cfg.Max, logger)
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

	opt, err := search.OptionsFromConfig(*cfg, sess.Endpoint)
	if err != nil {
		return err
	}

	human := !cfg.Output.JSONOutput
	var progress io.Writer
	var hooks search.Hooks
	if human {
		if !cfg.Output.NoProgress {
			progress = stdout
		}
		hooks = search.Hooks{
			BeforeProbe: func(level int) {
				fmt.Fprintf(stdout, "\nTesting concurrency level: %d\n", level)
			},
			AfterProbe: func(p search.Probe) {
				output.PrintProbe(stdout, p, cfg.Verbose)
			},
		}
	}

	startedAt := time.Now()
	if human {
		output.PrintSearchHeader(stdout, output.SearchHeader{
			RunHeader: output.RunHeader{
				Title:     "Max Concurrency Search",
				Endpoint:  sess.Endpoint,
				Requests:  cfg.Requests,
				Timeout:   cfg.Target.Timeout,
				StartedAt: startedAt,
			},
			Options: opt,
		})
	}

	res, err := search.NewFinder(sess.Prober(progress), logger, hooks).Find(ctx, opt)
	if err != nil {
		return err
	}

	results := output.SearchResults{
		ID:             output.NewID(),
		StartedAt:      startedAt,
		Endpoint:       sess.Endpoint,
		MaxConcurrency: output.MaxConcurrencyText(res),
		Result:         res,
	}
	if human {
		output.PrintSearchSummary(stdout, res, cfg.Verbose)
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
