package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"
)

// Default values shared by both commands.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultAPIKeyEnv  = "CAPFIRE_API_KEY"
	DefaultEnvFile    = ".env"
	DefaultAuthScheme = "Token"
	DefaultEndpoint   = "search/"
	DefaultThreshold  = 95.0
	DefaultMaxIters   = 64
)

// SearchMethod selects the max-concurrency search strategy.
type SearchMethod string

const (
	SearchMethodBinary SearchMethod = "binary"
	SearchMethodLinear SearchMethod = "linear"
)

// Target describes where requests go and how they are shaped.
type Target struct {
	BaseURL  string            `mapstructure:"base_url"`
	Endpoint string            `mapstructure:"endpoint"`
	Headers  map[string]string `mapstructure:"headers"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}

// AuthConfig describes where the API credential comes from.
type AuthConfig struct {
	EnvFile   string `mapstructure:"env_file"`
	APIKeyEnv string `mapstructure:"api_key_env"`
	Scheme    string `mapstructure:"scheme"`
}

// OutputConfig controls what is printed and persisted.
type OutputConfig struct {
	JSONOutput bool   `mapstructure:"json_output"`
	OutputFile string `mapstructure:"output_file"`
	NoProgress bool   `mapstructure:"no_progress"`
	LogLevel   string `mapstructure:"log_level"`
}

// TracingConfig configures OpenTelemetry export of per-request spans.
type TracingConfig struct {
	Enable      bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether tracing was requested.
func (t TracingConfig) Enabled() bool {
	return t.Enable || strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are sent with requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() && t.Propagate
}

// Common holds the settings shared by the load-test runner and the finder.
type Common struct {
	Target     Target        `mapstructure:"target"`
	Auth       AuthConfig    `mapstructure:"auth"`
	Output     OutputConfig  `mapstructure:"output"`
	Tracing    TracingConfig `mapstructure:"tracing"`
	Requests   int           `mapstructure:"requests"`
	Pause      time.Duration `mapstructure:"pause"`
	ConfigFile string        `mapstructure:"-"`
}

// LoadTestConfig configures the load-test runner.
type LoadTestConfig struct {
	Common
	Concurrency []int `mapstructure:"concurrency"`
	RPS         []int `mapstructure:"rps"`
	SingleTest  bool  `mapstructure:"single_test"`
}

// Pair is one concurrency/rps combination to run.
type Pair struct {
	Concurrency int
	RPS         int
}

// Pairs expands the configured levels into the runs to execute: the first
// value of each list with SingleTest, otherwise the cartesian product in
// concurrency-major order.
func (c LoadTestConfig) Pairs() []Pair {
	concurrency := c.Concurrency
	if len(concurrency) == 0 {
		concurrency = []int{10}
	}
	rps := c.RPS
	if len(rps) == 0 {
		rps = []int{0}
	}
	if c.SingleTest {
		return []Pair{{Concurrency: concurrency[0], RPS: rps[0]}}
	}
	pairs := make([]Pair, 0, len(concurrency)*len(rps))
	for _, conc := range concurrency {
		for _, r := range rps {
			pairs = append(pairs, Pair{Concurrency: conc, RPS: r})
		}
	}
	return pairs
}

// SearchConfig configures the max-concurrency finder.
type SearchConfig struct {
	Common
	Start         int          `mapstructure:"start"`
	Max           int          `mapstructure:"max"`
	Step          int          `mapstructure:"step"`
	Threshold     float64      `mapstructure:"threshold"`
	Method        SearchMethod `mapstructure:"method"`
	StopOnFailure bool         `mapstructure:"stop_on_failure"`
	Verbose       bool         `mapstructure:"verbose"`
	Verify        bool         `mapstructure:"verify"`
	MaxIterations int          `mapstructure:"max_iterations"`
	SLA           []string     `mapstructure:"sla"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Common) validate() []string {
	var issues []string

	endpoint := strings.TrimSpace(c.Target.Endpoint)
	base := strings.TrimSpace(c.Target.BaseURL)
	if endpoint == "" {
		issues = append(issues, "endpoint is required (use --help for usage information)")
	} else if !isAbsoluteURL(endpoint) {
		if base == "" {
			issues = append(issues, "base-url is required when endpoint is a relative path")
		} else if !isAbsoluteURL(base) {
			issues = append(issues, fmt.Sprintf("base-url %q must be an absolute http(s) URL", base))
		}
	}
	if c.Target.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.Requests < 0 {
		issues = append(issues, "requests must be >= 0")
	}
	if c.Pause < 0 {
		issues = append(issues, "pause must be >= 0")
	}
	if strings.TrimSpace(c.Auth.APIKeyEnv) == "" {
		issues = append(issues, "api-key-env cannot be empty")
	}
	if _, err := ParseLogLevel(c.Output.LogLevel); err != nil {
		issues = append(issues, err.Error())
	}
	if c.Output.OutputFile != "" && !supportedOutputFile(c.Output.OutputFile) {
		issues = append(issues, "output-file must end in .json, .yaml or .yml")
	}
	issues = append(issues, validateTracingConfig(c.Tracing)...)
	return issues
}

// Validate checks the load-test settings.
func (c LoadTestConfig) Validate() error {
	issues := c.Common.validate()

	if len(c.Concurrency) == 0 {
		issues = append(issues, "at least one concurrency level is required")
	}
	for _, conc := range c.Concurrency {
		if conc < 1 {
			issues = append(issues, fmt.Sprintf("concurrency must be >= 1, got %d", conc))
		}
		if conc > 500 {
			fmt.Fprintf(os.Stderr, "WARNING: High concurrency configured (%d). Ensure you have authorization to test the target system.\n", conc)
		}
	}
	for _, r := range c.RPS {
		if r < 0 {
			issues = append(issues, fmt.Sprintf("rps must be >= 0, got %d", r))
		}
		if r > 1000 {
			fmt.Fprintf(os.Stderr, "WARNING: High rate limit configured (%d RPS). Ensure you have authorization to test the target system.\n", r)
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Validate checks the finder settings. Degenerate ranges are reported here,
// before any request is issued.
func (c SearchConfig) Validate() error {
	issues := c.Common.validate()

	if c.Requests < 1 {
		issues = append(issues, "requests must be >= 1 for a search")
	}
	if c.Start < 1 {
		issues = append(issues, "start must be >= 1")
	}
	if c.Max < c.Start {
		issues = append(issues, fmt.Sprintf("start (%d) must be <= max (%d)", c.Start, c.Max))
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		issues = append(issues, "threshold must be between 0 and 100")
	}
	switch c.Method {
	case SearchMethodBinary:
	case SearchMethodLinear:
		if c.Step < 1 {
			issues = append(issues, "step must be >= 1 for linear search")
		}
	default:
		issues = append(issues, fmt.Sprintf("method must be 'binary' or 'linear', got %q", c.Method))
	}
	if c.MaxIterations < 1 {
		issues = append(issues, "max-iterations must be >= 1")
	}
	if c.Max > 500 {
		fmt.Fprintf(os.Stderr, "WARNING: Search may probe up to %d concurrent requests. Ensure you have authorization to test the target system.\n", c.Max)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	if !t.Enabled() {
		return nil
	}
	var issues []string
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing: sample_rate must be between 0.0 and 1.0")
	}
	return issues
}

// ParseLogLevel maps a level name to a slog level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log-level %q is not one of debug, info, warn, error", level)
	}
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func supportedOutputFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
