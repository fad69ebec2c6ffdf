// Package threshold parses and evaluates per-run pass criteria such as
// "latency:p95 < 500" against run statistics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/capfire/internal/metrics"
)

// Metric names. The http_* spellings are accepted as aliases.
const (
	MetricLatency  = "latency"
	MetricSuccess  = "success"
	MetricFailed   = "failed"
	MetricRequests = "requests"
)

var metricAliases = map[string]string{
	"latency":           MetricLatency,
	"http_req_duration": MetricLatency,
	"success":           MetricSuccess,
	"failed":            MetricFailed,
	"http_req_failed":   MetricFailed,
	"requests":          MetricRequests,
	"throughput":        MetricRequests,
	"http_requests":     MetricRequests,
}

var validAggregates = map[string][]string{
	MetricLatency:  {"p50", "median", "p95", "p99", "avg", "mean", "min", "max"},
	MetricSuccess:  {"rate", "count"},
	MetricFailed:   {"rate", "count"},
	MetricRequests: {"rate", "count"},
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Threshold is a single assertion on a run's statistics.
type Threshold struct {
	Metric    string  // canonical metric name, e.g. "latency"
	Aggregate string  // e.g. "p95", "rate"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // latencies in ms, rates as fractions, throughput in req/s
	Raw       string  // original text for display
}

// Result is the outcome of evaluating one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against run statistics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Len returns the number of thresholds.
func (e *Evaluator) Len() int {
	if e == nil {
		return 0
	}
	return len(e.thresholds)
}

// Evaluate checks all thresholds against stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if e.Len() == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// Passes reports whether every threshold holds for stats. An evaluator
// without thresholds always passes.
func (e *Evaluator) Passes(stats metrics.Stats) bool {
	return AllPassed(e.Evaluate(stats))
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string. Supported forms:
//   - "latency:p95 < 500"      latency percentile or avg/min/max in ms
//   - "success:rate >= 0.99"   success rate as a fraction
//   - "failed:count < 10"      failed request count
//   - "requests:rate > 100"    throughput in requests per second
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p95 < 500')", s)
	}

	metric, ok := metricAliases[matches[1]]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, success, failed, requests)", matches[1])
	}
	aggregate := matches[2]
	if !contains(validAggregates[metric], aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(validAggregates[metric], ", "))
	}
	operator := matches[3]
	if !contains([]string{"<", "<=", ">", ">=", "=="}, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}
	value, err := strconv.ParseFloat(matches[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[4], err)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings, reporting every bad one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case MetricLatency:
		switch t.Aggregate {
		case "p50", "median":
			return stats.MedianMs, nil
		case "p95":
			return stats.P95Ms, nil
		case "p99":
			return stats.P99Ms, nil
		case "avg", "mean":
			return stats.MeanMs, nil
		case "min":
			return stats.MinMs, nil
		case "max":
			return stats.MaxMs, nil
		}
	case MetricSuccess:
		if t.Aggregate == "count" {
			return float64(stats.Succeeded), nil
		}
		return stats.SuccessRate, nil
	case MetricFailed:
		if t.Aggregate == "count" {
			return float64(stats.Failed), nil
		}
		if stats.Total == 0 {
			return 0, nil
		}
		return float64(stats.Failed) / float64(stats.Total), nil
	case MetricRequests:
		if t.Aggregate == "count" {
			return float64(stats.Total), nil
		}
		return stats.ThroughputRPS, nil
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
