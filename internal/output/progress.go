package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/capfire/internal/metrics"
)

// ProgressReporter displays a live progress line for the run being
// recorded by a Collector.
type ProgressReporter struct {
	collector *metrics.Collector
	total     int
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given
// interval. total is the expected number of requests.
func NewProgressReporter(collector *metrics.Collector, total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		total:     total,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates and clears the line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, "\r"+progressLine(p.collector.Snapshot(), p.total))
		case <-p.done:
			fmt.Fprint(p.writer, "\r\033[K")
			return
		}
	}
}

func progressLine(s metrics.Snapshot, total int) string {
	return fmt.Sprintf("Requests: %d/%d | Successes: %d | Failures: %d (timeouts %d) | RPS: %.1f | P50: %s | P99: %s",
		s.Total, total, s.Successes, s.Failures, s.Timeouts, s.RequestsPerSec,
		s.P50Latency.Round(time.Millisecond), s.P99Latency.Round(time.Millisecond))
}
