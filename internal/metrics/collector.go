package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records outcomes as they stream in so progress can be shown while
// a run is in flight. Final statistics come from Summarize, not from here.
type Collector struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	timeouts  int64
	start     time.Time
}

// Snapshot is a point-in-time view of a Collector.
type Snapshot struct {
	Total          int64
	Successes      int64
	Failures       int64
	Timeouts       int64
	Elapsed        time.Duration
	RequestsPerSec float64
	P50Latency     time.Duration
	P99Latency     time.Duration
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 10min with 3 significant figures.
	h := hdrhistogram.New(1, 600_000_000, 3)
	return &Collector{
		hist:  h,
		start: time.Now(),
	}
}

// Start resets the clock used for the requests-per-second figure.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Observe records a single outcome.
func (c *Collector) Observe(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.Latency > 0 {
		us := o.Latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}

	if o.Succeeded {
		c.successes++
		return
	}
	c.failures++
	if o.ErrorKind == ErrorKindTimeout {
		c.timeouts++
	}
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Total:     c.successes + c.failures,
		Successes: c.successes,
		Failures:  c.failures,
		Timeouts:  c.timeouts,
		Elapsed:   time.Since(c.start),
	}
	if c.hist.TotalCount() > 0 {
		snap.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if snap.Elapsed > 0 && snap.Total > 0 {
		snap.RequestsPerSec = float64(snap.Total) / snap.Elapsed.Seconds()
	}
	return snap
}
