package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/torosent/capfire/internal/metrics"
)

func TestProgressLine(t *testing.T) {
	s := metrics.Snapshot{
		Total:          7,
		Successes:      5,
		Failures:       2,
		Timeouts:       1,
		RequestsPerSec: 3.5,
		P50Latency:     12 * time.Millisecond,
		P99Latency:     40 * time.Millisecond,
	}
	got := progressLine(s, 10)
	want := "Requests: 7/10 | Successes: 5 | Failures: 2 (timeouts 1) | RPS: 3.5 | P50: 12ms | P99: 40ms"
	if got != want {
		t.Errorf("progressLine() =\n%q\nwant\n%q", got, want)
	}
}

func TestProgressReporterStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(metrics.NewCollector(), 10, 100*time.Millisecond, &buf)
	if reporter == nil {
		t.Fatal("Expected non-nil reporter")
	}
	reporter.Stop()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestProgressReporterFormatting(t *testing.T) {
	collector := metrics.NewCollector()
	collector.Start()
	for i := 0; i < 3; i++ {
		collector.Observe(metrics.Success(50*time.Millisecond, 200))
	}
	collector.Observe(metrics.Timeout(time.Second))

	var buf bytes.Buffer
	reporter := NewProgressReporter(collector, 10, 20*time.Millisecond, &buf)
	reporter.Start()
	reporter.Start()
	time.Sleep(100 * time.Millisecond)
	reporter.Stop()
	reporter.Stop()

	out := buf.String()
	if !strings.Contains(out, "Requests: 4/10") || !strings.Contains(out, "(timeouts 1)") {
		t.Errorf("unexpected progress output %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("expected the line to be cleared on stop, got %q", out)
	}
}
