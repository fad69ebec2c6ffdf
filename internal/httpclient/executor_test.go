package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/capfire/internal/config"
	"github.com/torosent/capfire/internal/httpclient"
	"github.com/torosent/capfire/internal/metrics"
	"github.com/torosent/capfire/internal/runner"
	"github.com/torosent/capfire/internal/tracing"
)

func TestDriverAgainstHealthyServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		time.Sleep(2 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	target := config.Target{BaseURL: server.URL, Endpoint: "search/"}
	builder, err := httpclient.NewRequestBuilderWithAuth(target, staticAuth("Token k"))
	if err != nil {
		t.Fatalf("NewRequestBuilderWithAuth() error = %v", err)
	}
	d := runner.New(runner.Options{Executor: httpclient.NewExecutor(httpclient.NewClient(5), builder, nil)})

	stats, err := d.Run(context.Background(), runner.RunConfig{
		Endpoint:      httpclient.ResolveEndpoint(target),
		TotalRequests: 20,
		Concurrency:   5,
		Timeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Total != 20 || stats.Succeeded != 20 || stats.SuccessRate != 1.0 {
		t.Fatalf("expected 20 successes, got %+v", stats)
	}
	if stats.StatusHistogram[200] != 20 {
		t.Errorf("status histogram = %v", stats.StatusHistogram)
	}
	if !(stats.MinMs <= stats.MedianMs && stats.MedianMs <= stats.P95Ms && stats.P95Ms <= stats.P99Ms && stats.P99Ms <= stats.MaxMs) {
		t.Errorf("percentiles not monotone: %+v", stats)
	}
}

func TestDriverAgainstHangingServer(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for request timeouts")
	}
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	d := runner.New(runner.Options{Executor: httpclient.NewExecutor(httpclient.NewClient(5), nil, nil)})
	stats, err := d.Run(context.Background(), runner.RunConfig{
		Endpoint:      server.URL,
		TotalRequests: 5,
		Concurrency:   5,
		Timeout:       time.Second,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Succeeded != 0 || stats.ErrorKinds[metrics.ErrorKindTimeout] != 5 {
		t.Fatalf("expected 5 timeouts, got %+v", stats)
	}
	for name, v := range map[string]float64{"mean": stats.MeanMs, "min": stats.MinMs, "max": stats.MaxMs, "p99": stats.P99Ms} {
		if v != 1000 {
			t.Errorf("%s latency = %v, want 1000ms", name, v)
		}
	}
	if stats.StatusHistogram[0] != 5 {
		t.Errorf("expected five outcomes without status, got %v", stats.StatusHistogram)
	}
}

func TestExecutorPropagatesTraceContext(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	otel.SetTextMapPropagator(propagation.TraceContext{})

	seen := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("Traceparent")
	}))
	defer server.Close()

	exec := httpclient.NewExecutor(httpclient.NewClient(1), nil, tracing.NewForTracer(tp.Tracer("test"), true))
	out := exec.Execute(context.Background(), server.URL, time.Second)
	if !out.Succeeded {
		t.Fatalf("expected success, got %+v", out)
	}
	if traceparent := <-seen; traceparent == "" {
		t.Error("expected traceparent header on request")
	}
	if got := len(exporter.GetSpans()); got != 1 {
		t.Errorf("expected 1 span, got %d", got)
	}
}

type staticAuth string

func (s staticAuth) Token(context.Context) (string, error) { return string(s), nil }

func (s staticAuth) InjectHeader(_ context.Context, req *http.Request) error {
	req.Header.Set("Authorization", string(s))
	return nil
}

func (s staticAuth) Close() error { return nil }
