package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Command names, also used as the default OpenTelemetry service name.
const (
	LoadTestCommand = "capfire"
	SearchCommand   = "capfire-ceiling"
)

// listFlags accept several space separated values after a single flag.
var listFlags = map[string]bool{"--concurrency": true, "-c": true, "--rps": true, "-r": true}

// newFlagCommand creates a cobra command used purely as a flag container.
func newFlagCommand(use string, configure func(*pflag.FlagSet)) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureCommonFlags(cmd.Flags())
	configure(cmd.Flags())
	return cmd
}

// configureCommonFlags sets up flags shared by both commands.
func configureCommonFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("endpoint", DefaultEndpoint, "API endpoint to test, relative to --base-url or an absolute URL")
	flags.String("base-url", "", "Base URL prepended to relative endpoints")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.Float64("timeout", DefaultTimeout.Seconds(), "Per-request timeout in seconds")

	// Credential flags
	flags.String("env-file", DefaultEnvFile, "Environment file to load before reading the API key")
	flags.String("api-key-env", DefaultAPIKeyEnv, "Environment variable holding the API key")
	flags.String("auth-scheme", DefaultAuthScheme, "Authorization header scheme (e.g. Token, Bearer)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.String("output-file", "", "Write all results to a .json, .yaml or .yml file")
	flags.Bool("no-progress", false, "Disable the live progress line")
	flags.String("log-level", "info", "Diagnostic log level: debug, info, warn, error")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Tracing flags
	flags.Bool("tracing", false, "Emit an OpenTelemetry span per request")
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", true, "Send W3C trace context headers with each request")
}

func configureLoadTestFlags(flags *pflag.FlagSet) {
	flags.Int("requests", 100, "Total number of requests per run")
	flags.IntSliceP("concurrency", "c", []int{1, 5, 10, 20}, "Concurrency levels to test")
	flags.IntSliceP("rps", "r", []int{0}, "Requests per second to test (0 means unlimited)")
	flags.Bool("single-test", false, "Run a single test with the first concurrency and rps values")
	flags.Duration("pause", 2*time.Second, "Pause between runs")
}

func configureSearchFlags(flags *pflag.FlagSet) {
	flags.Int("requests", 100, "Number of requests per tested level")
	flags.Int("start", 1, "Starting concurrency level")
	flags.Int("max", 10000, "Maximum concurrency to test")
	flags.Int("step", 10, "Step size for linear search")
	flags.Float64("threshold", DefaultThreshold, "Success rate threshold percentage")
	flags.String("method", string(SearchMethodBinary), "Search method: binary (fast) or linear (detailed)")
	flags.Bool("stop-on-failure", false, "Stop linear search on first failure")
	flags.Bool("verbose", false, "Show detailed results for each tested level")
	flags.Bool("verify", false, "Re-run the best level with twice the requests after the search")
	flags.Int("max-iterations", DefaultMaxIters, "Upper bound on binary search probes")
	flags.StringSlice("sla", nil, "Extra pass criteria per level (repeatable, e.g. 'latency:p95 < 500')")
	flags.Duration("pause", time.Second, "Pause between tested levels")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// normalizeListArgs joins space separated values after list flags so that
// "--concurrency 1 5 10" parses like "--concurrency 1,5,10".
func normalizeListArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !listFlags[arg] {
			out = append(out, arg)
			continue
		}
		var values []string
		for i+1 < len(args) && isInteger(args[i+1]) {
			values = append(values, args[i+1])
			i++
		}
		if len(values) == 0 {
			out = append(out, arg)
			continue
		}
		out = append(out, arg+"="+strings.Join(values, ","))
	}
	return out
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// applyCommonFlagOverrides applies command-line flag values to the config,
// overriding values from the config file and the environment.
func applyCommonFlagOverrides(c *Common, fs *pflag.FlagSet) error {
	if fs.Changed("endpoint") {
		val, err := fs.GetString("endpoint")
		if err != nil {
			return err
		}
		c.Target.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("base-url") {
		val, err := fs.GetString("base-url")
		if err != nil {
			return err
		}
		c.Target.BaseURL = strings.TrimSpace(val)
	}
	if fs.Changed("timeout") {
		val, err := fs.GetFloat64("timeout")
		if err != nil {
			return err
		}
		c.Target.Timeout = secondsToDuration(val)
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		c.Requests = val
	}
	if fs.Changed("pause") {
		val, err := fs.GetDuration("pause")
		if err != nil {
			return err
		}
		c.Pause = val
	}
	if fs.Changed("env-file") {
		val, err := fs.GetString("env-file")
		if err != nil {
			return err
		}
		c.Auth.EnvFile = strings.TrimSpace(val)
	}
	if fs.Changed("api-key-env") {
		val, err := fs.GetString("api-key-env")
		if err != nil {
			return err
		}
		c.Auth.APIKeyEnv = strings.TrimSpace(val)
	}
	if fs.Changed("auth-scheme") {
		val, err := fs.GetString("auth-scheme")
		if err != nil {
			return err
		}
		c.Auth.Scheme = strings.TrimSpace(val)
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		c.Output.JSONOutput = val
	}
	if fs.Changed("output-file") {
		val, err := fs.GetString("output-file")
		if err != nil {
			return err
		}
		c.Output.OutputFile = strings.TrimSpace(val)
	}
	if fs.Changed("no-progress") {
		val, err := fs.GetBool("no-progress")
		if err != nil {
			return err
		}
		c.Output.NoProgress = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		c.Output.LogLevel = strings.TrimSpace(val)
	}
	if fs.Changed("tracing") {
		val, err := fs.GetBool("tracing")
		if err != nil {
			return err
		}
		c.Tracing.Enable = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		c.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		c.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		c.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		c.Tracing.Insecure = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		c.Tracing.Propagate = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if c.Target.Headers == nil {
			c.Target.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			c.Target.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}

func applyLoadTestFlagOverrides(cfg *LoadTestConfig, fs *pflag.FlagSet) error {
	if err := applyCommonFlagOverrides(&cfg.Common, fs); err != nil {
		return err
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetIntSlice("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("rps") {
		val, err := fs.GetIntSlice("rps")
		if err != nil {
			return err
		}
		cfg.RPS = val
	}
	if fs.Changed("single-test") {
		val, err := fs.GetBool("single-test")
		if err != nil {
			return err
		}
		cfg.SingleTest = val
	}
	return nil
}

func applySearchFlagOverrides(cfg *SearchConfig, fs *pflag.FlagSet) error {
	if err := applyCommonFlagOverrides(&cfg.Common, fs); err != nil {
		return err
	}
	if fs.Changed("start") {
		val, err := fs.GetInt("start")
		if err != nil {
			return err
		}
		cfg.Start = val
	}
	if fs.Changed("max") {
		val, err := fs.GetInt("max")
		if err != nil {
			return err
		}
		cfg.Max = val
	}
	if fs.Changed("step") {
		val, err := fs.GetInt("step")
		if err != nil {
			return err
		}
		cfg.Step = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetFloat64("threshold")
		if err != nil {
			return err
		}
		cfg.Threshold = val
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = SearchMethod(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("stop-on-failure") {
		val, err := fs.GetBool("stop-on-failure")
		if err != nil {
			return err
		}
		cfg.StopOnFailure = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("verify") {
		val, err := fs.GetBool("verify")
		if err != nil {
			return err
		}
		cfg.Verify = val
	}
	if fs.Changed("max-iterations") {
		val, err := fs.GetInt("max-iterations")
		if err != nil {
			return err
		}
		cfg.MaxIterations = val
	}
	if fs.Changed("sla") {
		val, err := fs.GetStringSlice("sla")
		if err != nil {
			return err
		}
		cfg.SLA = val
	}
	return nil
}
