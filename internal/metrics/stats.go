package metrics

import (
	"math"
	"sort"
	"time"
)

// Stats represents the aggregated statistics of one run.
type Stats struct {
	Total         int           `json:"total" yaml:"total"`
	Succeeded     int           `json:"succeeded" yaml:"succeeded"`
	Failed        int           `json:"failed" yaml:"failed"`
	SuccessRate   float64       `json:"success_rate" yaml:"success_rate"`
	MeanMs        float64       `json:"latency_mean_ms" yaml:"latency_mean_ms"`
	MedianMs      float64       `json:"latency_median_ms" yaml:"latency_median_ms"`
	MinMs         float64       `json:"latency_min_ms" yaml:"latency_min_ms"`
	MaxMs         float64       `json:"latency_max_ms" yaml:"latency_max_ms"`
	P95Ms         float64       `json:"latency_p95_ms" yaml:"latency_p95_ms"`
	P99Ms         float64       `json:"latency_p99_ms" yaml:"latency_p99_ms"`
	ThroughputRPS float64       `json:"throughput_rps" yaml:"throughput_rps"`
	Duration      time.Duration `json:"-" yaml:"-"`
	DurationMs    float64       `json:"duration_ms" yaml:"duration_ms"`

	// StatusHistogram counts outcomes by status code; key 0 collects outcomes
	// without a response.
	StatusHistogram map[int]int       `json:"status_histogram,omitempty" yaml:"status_histogram,omitempty"`
	ErrorKinds      map[ErrorKind]int `json:"error_kinds,omitempty" yaml:"error_kinds,omitempty"`
	ErrorDetails    map[string]int    `json:"error_details,omitempty" yaml:"error_details,omitempty"`
}

// SuccessPercent returns the success rate as a percentage.
func (s Stats) SuccessPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) * 100 / float64(s.Total)
}

// Summarize computes Stats from the complete outcome set of a run. The result
// does not depend on the order of outcomes.
func Summarize(outcomes []Outcome, elapsed time.Duration) Stats {
	stats := Stats{
		Total:      len(outcomes),
		Duration:   elapsed,
		DurationMs: durationMs(elapsed),
	}
	if len(outcomes) == 0 {
		return stats
	}

	latencies := make([]time.Duration, 0, len(outcomes))
	var sum time.Duration
	stats.StatusHistogram = make(map[int]int)
	for _, o := range outcomes {
		if o.Succeeded {
			stats.Succeeded++
		} else {
			stats.Failed++
			if stats.ErrorKinds == nil {
				stats.ErrorKinds = make(map[ErrorKind]int)
				stats.ErrorDetails = make(map[string]int)
			}
			stats.ErrorKinds[o.ErrorKind]++
			if o.Detail != "" {
				stats.ErrorDetails[o.Detail]++
			}
		}
		stats.StatusHistogram[o.StatusCode]++
		latencies = append(latencies, o.Latency)
		sum += o.Latency
	}

	stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	stats.MinMs = durationMs(latencies[0])
	stats.MaxMs = durationMs(latencies[len(latencies)-1])
	stats.MeanMs = durationMs(sum / time.Duration(len(latencies)))
	stats.MedianMs = durationMs(NearestRank(latencies, 50))
	stats.P95Ms = durationMs(NearestRank(latencies, 95))
	stats.P99Ms = durationMs(NearestRank(latencies, 99))

	if elapsed > 0 {
		stats.ThroughputRPS = float64(stats.Total) / elapsed.Seconds()
	}
	return stats
}

// NearestRank returns the p-th percentile of an ascending slice using the
// nearest-rank method: index = ceil(p/100*n) - 1, clamped to [0, n-1].
// It returns 0 for an empty slice.
func NearestRank(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
