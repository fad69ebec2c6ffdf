package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/threshold"
)

var (
	// ErrDegenerateSearch reports a search range that contains no level.
	ErrDegenerateSearch = errors.New("degenerate search range")
	// ErrInvalidOptions reports any other invalid search setting.
	ErrInvalidOptions = errors.New("invalid search options")
	// ErrSearchAborted wraps a prober error that stopped the search.
	ErrSearchAborted = errors.New("search aborted")
)

// Options configures a search.
type Options struct {
	Method        config.SearchMethod
	Endpoint      string
	Requests      int
	Timeout       time.Duration
	Start         int
	Max           int
	Step          int
	Threshold     float64 // success percentage in [0, 100]
	StopOnFailure bool
	MaxIterations int
	Verify        bool
	Pause         time.Duration
	Criteria      *threshold.Evaluator
}

// OptionsFromConfig maps the finder configuration onto search options.
func OptionsFromConfig(cfg config.SearchConfig, endpoint string) (Options, error) {
	criteria, err := threshold.ParseMultiple(cfg.SLA)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	opt := Options{
		Method:        cfg.Method,
		Endpoint:      endpoint,
		Requests:      cfg.Requests,
		Timeout:       cfg.Target.Timeout,
		Start:         cfg.Start,
		Max:           cfg.Max,
		Step:          cfg.Step,
		Threshold:     cfg.Threshold,
		StopOnFailure: cfg.StopOnFailure,
		MaxIterations: cfg.MaxIterations,
		Verify:        cfg.Verify,
		Pause:         cfg.Pause,
	}
	if len(criteria) > 0 {
		opt.Criteria = threshold.NewEvaluator(criteria)
	}
	return opt, nil
}

func (o *Options) normalize() {
	if o.Method == "" {
		o.Method = config.SearchMethodBinary
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = config.DefaultMaxIters
	}
	if o.Step == 0 && o.Method == config.SearchMethodBinary {
		o.Step = 1
	}
}

// Validate rejects settings that would make the search meaningless before
// any request is sent.
func (o Options) Validate() error {
	if o.Start < 1 {
		return fmt.Errorf("%w: start must be >= 1, got %d", ErrDegenerateSearch, o.Start)
	}
	if o.Max < o.Start {
		return fmt.Errorf("%w: start (%d) is greater than max (%d)", ErrDegenerateSearch, o.Start, o.Max)
	}

	var issues []string
	switch o.Method {
	case config.SearchMethodBinary:
	case config.SearchMethodLinear:
		if o.Step < 1 {
			issues = append(issues, fmt.Sprintf("step must be >= 1, got %d", o.Step))
		}
	default:
		issues = append(issues, fmt.Sprintf("unknown method %q", o.Method))
	}
	if o.Threshold < 0 || o.Threshold > 100 {
		issues = append(issues, fmt.Sprintf("threshold must be within [0, 100], got %g", o.Threshold))
	}
	if o.Requests < 1 {
		issues = append(issues, fmt.Sprintf("requests must be >= 1, got %d", o.Requests))
	}
	if o.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if o.MaxIterations < 1 {
		issues = append(issues, "max iterations must be >= 1")
	}
	if o.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(issues, "; "))
	}
	return nil
}
