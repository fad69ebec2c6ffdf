package config

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read as a setting, for
// example CAPFIRE_TARGET_BASE_URL or CAPFIRE_THRESHOLD.
const EnvPrefix = "CAPFIRE"

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// Loader handles loading configuration from files, the environment and
// command-line arguments, in increasing order of precedence.
type Loader struct {
	// Getenv overrides environment lookups; nil means the process environment.
	Getenv func(string) (string, bool)
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

var commonKeys = []string{
	"target.base_url", "target.endpoint", "target.timeout",
	"auth.env_file", "auth.api_key_env", "auth.scheme",
	"output.json_output", "output.output_file", "output.no_progress", "output.log_level",
	"tracing.enabled", "tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure", "tracing.propagate",
	"requests", "pause",
}

var loadTestKeys = []string{"concurrency", "rps", "single_test"}

var searchKeys = []string{
	"start", "max", "step", "threshold", "method",
	"stop_on_failure", "verbose", "verify", "max_iterations", "sla",
}

// LoadTest builds the runner configuration from args.
func (l Loader) LoadTest(args []string) (*LoadTestConfig, error) {
	cmd := newFlagCommand(LoadTestCommand, configureLoadTestFlags)
	settings, configPath, err := l.parse(cmd, args, append(append([]string{}, commonKeys...), loadTestKeys...))
	if err != nil {
		return nil, err
	}

	cfg := &LoadTestConfig{
		Common:      defaultCommon(LoadTestCommand, 2*time.Second),
		Concurrency: []int{1, 5, 10, 20},
		RPS:         []int{0},
	}
	cfg.ConfigFile = configPath

	if err := applyCommonSettings(&cfg.Common, settings); err != nil {
		return nil, err
	}
	if err := applyLoadTestSettings(cfg, settings); err != nil {
		return nil, err
	}
	if err := applyLoadTestFlagOverrides(cfg, cmd.Flags()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSearch builds the finder configuration from args.
func (l Loader) LoadSearch(args []string) (*SearchConfig, error) {
	cmd := newFlagCommand(SearchCommand, configureSearchFlags)
	settings, configPath, err := l.parse(cmd, args, append(append([]string{}, commonKeys...), searchKeys...))
	if err != nil {
		return nil, err
	}

	cfg := &SearchConfig{
		Common:        defaultCommon(SearchCommand, time.Second),
		Start:         1,
		Max:           10000,
		Step:          10,
		Threshold:     DefaultThreshold,
		Method:        SearchMethodBinary,
		MaxIterations: DefaultMaxIters,
	}
	cfg.ConfigFile = configPath

	if err := applyCommonSettings(&cfg.Common, settings); err != nil {
		return nil, err
	}
	if err := applySearchSettings(cfg, settings); err != nil {
		return nil, err
	}
	if err := applySearchFlagOverrides(cfg, cmd.Flags()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultCommon(service string, pause time.Duration) Common {
	return Common{
		Target: Target{
			Endpoint: DefaultEndpoint,
			Headers:  map[string]string{},
			Timeout:  DefaultTimeout,
		},
		Auth: AuthConfig{
			EnvFile:   DefaultEnvFile,
			APIKeyEnv: DefaultAPIKeyEnv,
			Scheme:    DefaultAuthScheme,
		},
		Output: OutputConfig{LogLevel: "info"},
		Tracing: TracingConfig{
			Protocol:    "grpc",
			ServiceName: service,
			SampleRate:  1.0,
			Propagate:   true,
		},
		Requests: 100,
		Pause:    pause,
	}
}

// parse parses args into cmd's flag set and merges the config file with
// CAPFIRE_ environment variables for the given keys.
func (l Loader) parse(cmd *cobra.Command, args []string, keys []string) (map[string]interface{}, string, error) {
	flagSet := cmd.Flags()
	if err := flagSet.Parse(normalizeListArgs(args)); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, "", ErrHelpRequested
		}
		return nil, "", err
	}
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, "", ErrHelpRequested
		}
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, "", fmt.Errorf("unexpected arguments: %s", strings.Join(extra, " "))
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, "", err
		}
	}

	settings := cfgViper.AllSettings()
	if err := l.overlayEnv(settings, keys); err != nil {
		return nil, "", err
	}
	return settings, configPath, nil
}

// overlayEnv copies CAPFIRE_ environment values over file settings.
// A dotted key such as target.base_url maps to CAPFIRE_TARGET_BASE_URL.
func (l Loader) overlayEnv(settings map[string]interface{}, keys []string) error {
	getenv := l.Getenv
	if getenv == nil {
		envViper := viper.New()
		envViper.SetEnvPrefix(EnvPrefix)
		envViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		for _, key := range keys {
			if err := envViper.BindEnv(key); err != nil {
				return err
			}
		}
		getenv = func(key string) (string, bool) {
			if !envViper.IsSet(key) {
				return "", false
			}
			return envViper.GetString(key), true
		}
	}

	for _, key := range keys {
		val, ok := getenv(key)
		if !ok {
			continue
		}
		section, leaf, nested := strings.Cut(key, ".")
		if !nested {
			settings[key] = val
			continue
		}
		sub, _ := settings[section].(map[string]interface{})
		if sub == nil {
			sub = map[string]interface{}{}
		}
		sub[leaf] = val
		settings[section] = sub
	}
	return nil
}

func sectionSettings(settings map[string]interface{}, name string) (map[string]interface{}, error) {
	raw, ok := lookupSetting(settings, name)
	if !ok || raw == nil {
		return nil, nil
	}
	section, err := toStringKeyMap(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return section, nil
}

// applyCommonSettings applies settings from a config file or the environment.
func applyCommonSettings(c *Common, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	target, err := sectionSettings(settings, "target")
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(target, "base_url", "baseurl", "base-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target.base_url: %w", err)
		}
		c.Target.BaseURL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(target, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target.endpoint: %w", err)
		}
		c.Target.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(target, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("target.timeout: %w", err)
		}
		c.Target.Timeout = dur
	}
	if raw, ok := lookupSetting(target, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("target.headers: %w", err)
		}
		if c.Target.Headers == nil {
			c.Target.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			c.Target.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	auth, err := sectionSettings(settings, "auth")
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(auth, "env_file", "envfile", "env-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("auth.env_file: %w", err)
		}
		c.Auth.EnvFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(auth, "api_key_env", "apikeyenv", "api-key-env"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("auth.api_key_env: %w", err)
		}
		c.Auth.APIKeyEnv = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(auth, "scheme"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("auth.scheme: %w", err)
		}
		c.Auth.Scheme = strings.TrimSpace(val)
	}

	output, err := sectionSettings(settings, "output")
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(output, "json_output", "jsonoutput", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.json_output: %w", err)
		}
		c.Output.JSONOutput = val
	}
	if raw, ok := lookupSetting(output, "output_file", "outputfile", "output-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output.output_file: %w", err)
		}
		c.Output.OutputFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(output, "no_progress", "noprogress", "no-progress"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("output.no_progress: %w", err)
		}
		c.Output.NoProgress = val
	}
	if raw, ok := lookupSetting(output, "log_level", "loglevel", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output.log_level: %w", err)
		}
		c.Output.LogLevel = strings.TrimSpace(val)
	}

	if err := applyTracingSettings(&c.Tracing, settings); err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("requests: %w", err)
		}
		c.Requests = val
	}
	if raw, ok := lookupSetting(settings, "pause"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		c.Pause = dur
	}
	return nil
}

func applyTracingSettings(t *TracingConfig, settings map[string]interface{}) error {
	tracing, err := sectionSettings(settings, "tracing")
	if err != nil || tracing == nil {
		return err
	}

	if raw, ok := lookupSetting(tracing, "enabled", "enable"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.enabled: %w", err)
		}
		t.Enable = val
	}
	if raw, ok := lookupSetting(tracing, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(tracing, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.protocol: %w", err)
		}
		t.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(tracing, "service_name", "servicename", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("tracing.service_name: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			t.ServiceName = val
		}
	}
	if raw, ok := lookupSetting(tracing, "sample_rate", "samplerate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("tracing.sample_rate: %w", err)
		}
		t.SampleRate = val
	}
	if raw, ok := lookupSetting(tracing, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.insecure: %w", err)
		}
		t.Insecure = val
	}
	if raw, ok := lookupSetting(tracing, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("tracing.propagate: %w", err)
		}
		t.Propagate = val
	}
	return nil
}

func applyLoadTestSettings(cfg *LoadTestConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asIntSlice(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}
	if raw, ok := lookupSetting(settings, "rps"); ok {
		val, err := asIntSlice(raw)
		if err != nil {
			return fmt.Errorf("rps: %w", err)
		}
		cfg.RPS = val
	}
	if raw, ok := lookupSetting(settings, "single_test", "singletest", "single-test"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("single_test: %w", err)
		}
		cfg.SingleTest = val
	}
	return nil
}

func applySearchSettings(cfg *SearchConfig, settings map[string]interface{}) error {
	ints := []struct {
		keys []string
		dst  *int
	}{
		{[]string{"start"}, &cfg.Start},
		{[]string{"max"}, &cfg.Max},
		{[]string{"step"}, &cfg.Step},
		{[]string{"max_iterations", "maxiterations", "max-iterations"}, &cfg.MaxIterations},
	}
	for _, field := range ints {
		if raw, ok := lookupSetting(settings, field.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", field.keys[0], err)
			}
			*field.dst = val
		}
	}

	bools := []struct {
		keys []string
		dst  *bool
	}{
		{[]string{"stop_on_failure", "stoponfailure", "stop-on-failure"}, &cfg.StopOnFailure},
		{[]string{"verbose"}, &cfg.Verbose},
		{[]string{"verify"}, &cfg.Verify},
	}
	for _, field := range bools {
		if raw, ok := lookupSetting(settings, field.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", field.keys[0], err)
			}
			*field.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "threshold"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("threshold: %w", err)
		}
		cfg.Threshold = val
	}
	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		cfg.Method = SearchMethod(strings.ToLower(strings.TrimSpace(val)))
	}
	if raw, ok := lookupSetting(settings, "sla"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("sla: %w", err)
		}
		cfg.SLA = val
	}
	return nil
}
