package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/torosent/capfire/internal/config"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadTestDefaults(t *testing.T) {
	loader := config.Loader{Getenv: noEnv}

	cfg, err := loader.LoadTest([]string{})
	if err != nil {
		t.Fatalf("LoadTest() error = %v", err)
	}

	if cfg.Target.Endpoint != "search/" {
		t.Errorf("Endpoint = %q, want search/", cfg.Target.Endpoint)
	}
	if cfg.Requests != 100 {
		t.Errorf("Requests = %d, want 100", cfg.Requests)
	}
	if !reflect.DeepEqual(cfg.Concurrency, []int{1, 5, 10, 20}) {
		t.Errorf("Concurrency = %v, want [1 5 10 20]", cfg.Concurrency)
	}
	if !reflect.DeepEqual(cfg.RPS, []int{0}) {
		t.Errorf("RPS = %v, want [0]", cfg.RPS)
	}
	if cfg.Target.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Target.Timeout)
	}
	if cfg.Auth.APIKeyEnv != config.DefaultAPIKeyEnv || cfg.Auth.Scheme != "Token" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Output.JSONOutput {
		t.Errorf("JSONOutput = true, want false")
	}
	if got := len(cfg.Pairs()); got != 4 {
		t.Errorf("Pairs() len = %d, want 4", got)
	}
}

func TestLoadSearchDefaults(t *testing.T) {
	cfg, err := config.Loader{Getenv: noEnv}.LoadSearch(nil)
	if err != nil {
		t.Fatalf("LoadSearch() error = %v", err)
	}
	if cfg.Start != 1 || cfg.Max != 10000 || cfg.Step != 10 {
		t.Errorf("range = %d..%d step %d", cfg.Start, cfg.Max, cfg.Step)
	}
	if cfg.Threshold != 95 {
		t.Errorf("Threshold = %v, want 95", cfg.Threshold)
	}
	if cfg.Method != config.SearchMethodBinary {
		t.Errorf("Method = %q, want binary", cfg.Method)
	}
	if cfg.MaxIterations != config.DefaultMaxIters {
		t.Errorf("MaxIterations = %d", cfg.MaxIterations)
	}
	if cfg.Pause != time.Second {
		t.Errorf("Pause = %v, want 1s", cfg.Pause)
	}
}

func TestLoadTestSpaceSeparatedLists(t *testing.T) {
	cfg, err := config.Loader{Getenv: noEnv}.LoadTest([]string{
		"--base-url", "https://api.example.com",
		"--concurrency", "2", "4", "8",
		"--rps", "0", "50",
		"--requests", "20",
	})
	if err != nil {
		t.Fatalf("LoadTest() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Concurrency, []int{2, 4, 8}) {
		t.Errorf("Concurrency = %v", cfg.Concurrency)
	}
	if !reflect.DeepEqual(cfg.RPS, []int{0, 50}) {
		t.Errorf("RPS = %v", cfg.RPS)
	}
	pairs := cfg.Pairs()
	if len(pairs) != 6 {
		t.Fatalf("Pairs() len = %d, want 6", len(pairs))
	}
	if pairs[0] != (config.Pair{Concurrency: 2, RPS: 0}) || pairs[1] != (config.Pair{Concurrency: 2, RPS: 50}) {
		t.Errorf("Pairs() order = %v, want concurrency-major", pairs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestPairsSingleTest(t *testing.T) {
	cfg := config.LoadTestConfig{Concurrency: []int{3, 9}, RPS: []int{10, 20}, SingleTest: true}
	got := cfg.Pairs()
	if len(got) != 1 || got[0] != (config.Pair{Concurrency: 3, RPS: 10}) {
		t.Fatalf("Pairs() = %v", got)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capfire.yaml")
	content := `
requests: 40
target:
  base_url: https://api.example.com/v4
  endpoint: search/
  timeout: 2.5
  headers:
    x-client: capfire
auth:
  scheme: Bearer
start: 5
max: 400
method: linear
step: 25
stop_on_failure: true
threshold: 99
sla:
  - "latency:p95 < 800"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Loader{Getenv: noEnv}.LoadSearch([]string{"--config", path, "--threshold", "97.5"})
	if err != nil {
		t.Fatalf("LoadSearch() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q", cfg.ConfigFile)
	}
	if cfg.Requests != 40 || cfg.Start != 5 || cfg.Max != 400 || cfg.Step != 25 {
		t.Errorf("unexpected numbers: %+v", cfg)
	}
	if cfg.Method != config.SearchMethodLinear || !cfg.StopOnFailure {
		t.Errorf("Method = %q StopOnFailure = %v", cfg.Method, cfg.StopOnFailure)
	}
	if cfg.Threshold != 97.5 {
		t.Errorf("Threshold = %v, want flag override 97.5", cfg.Threshold)
	}
	if cfg.Target.Timeout != 2500*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Target.Timeout)
	}
	if cfg.Target.Headers["X-Client"] != "capfire" {
		t.Errorf("Headers = %v", cfg.Target.Headers)
	}
	if cfg.Auth.Scheme != "Bearer" {
		t.Errorf("Scheme = %q", cfg.Auth.Scheme)
	}
	if len(cfg.SLA) != 1 || cfg.SLA[0] != "latency:p95 < 800" {
		t.Errorf("SLA = %v", cfg.SLA)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capfire.json")
	if err := os.WriteFile(path, []byte(`{
		"target": {"endpoint": "https://api.example.com/v4/search/"},
		"concurrency": [3, 6],
		"rps": "10,20",
		"output": {"json_output": true, "output_file": "results.yml"}
	}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Loader{Getenv: noEnv}.LoadTest([]string{"--config", path})
	if err != nil {
		t.Fatalf("LoadTest() error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Concurrency, []int{3, 6}) || !reflect.DeepEqual(cfg.RPS, []int{10, 20}) {
		t.Errorf("Concurrency = %v RPS = %v", cfg.Concurrency, cfg.RPS)
	}
	if !cfg.Output.JSONOutput || cfg.Output.OutputFile != "results.yml" {
		t.Errorf("Output = %+v", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v (absolute endpoint needs no base-url)", err)
	}
}

func TestLoadHelpRequested(t *testing.T) {
	_, err := config.Loader{Getenv: noEnv}.LoadTest([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	if _, err := (config.Loader{Getenv: noEnv}).LoadSearch([]string{"--bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if _, err := (config.Loader{Getenv: noEnv}).LoadSearch([]string{"stray"}); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestSearchValidate(t *testing.T) {
	valid := config.SearchConfig{
		Common: config.Common{
			Target:   config.Target{BaseURL: "https://api.example.com", Endpoint: "search/", Timeout: time.Second},
			Auth:     config.AuthConfig{APIKeyEnv: config.DefaultAPIKeyEnv},
			Requests: 10,
		},
		Start:         1,
		Max:           100,
		Step:          10,
		Threshold:     95,
		Method:        config.SearchMethodBinary,
		MaxIterations: 64,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*config.SearchConfig)
		want   string
	}{
		{"start above max", func(c *config.SearchConfig) { c.Start, c.Max = 50, 10 }, "start (50) must be <= max (10)"},
		{"zero start", func(c *config.SearchConfig) { c.Start = 0 }, "start must be >= 1"},
		{"threshold range", func(c *config.SearchConfig) { c.Threshold = 101 }, "threshold must be between 0 and 100"},
		{"unknown method", func(c *config.SearchConfig) { c.Method = "ternary" }, "method must be 'binary' or 'linear'"},
		{"linear step", func(c *config.SearchConfig) { c.Method, c.Step = config.SearchMethodLinear, 0 }, "step must be >= 1"},
		{"relative without base", func(c *config.SearchConfig) { c.Target.BaseURL = "" }, "base-url is required"},
		{"timeout", func(c *config.SearchConfig) { c.Target.Timeout = 0 }, "timeout must be > 0"},
		{"output file", func(c *config.SearchConfig) { c.Output.OutputFile = "out.csv" }, "output-file must end in"},
		{"log level", func(c *config.SearchConfig) { c.Output.LogLevel = "loud" }, "log-level"},
		{"tracing protocol", func(c *config.SearchConfig) { c.Tracing.Endpoint, c.Tracing.Protocol = "x:1", "udp" }, "tracing: protocol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			var verr config.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadTestValidate(t *testing.T) {
	cfg := config.LoadTestConfig{
		Common: config.Common{
			Target: config.Target{Endpoint: "https://api.example.com/search/", Timeout: time.Second},
			Auth:   config.AuthConfig{APIKeyEnv: "KEY"},
		},
		Concurrency: []int{0, 2},
		RPS:         []int{-1},
	}
	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Issues()) != 2 {
		t.Errorf("Issues() = %v, want 2 issues", verr.Issues())
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := config.ParseLogLevel("DEBUG"); err != nil {
		t.Errorf("ParseLogLevel(DEBUG) error = %v", err)
	}
	if _, err := config.ParseLogLevel("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}
