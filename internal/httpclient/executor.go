package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/torosent/capfire/internal/metrics"
	"github.com/torosent/capfire/internal/tracing"
)

// maxErrorBody bounds how much of an error response is kept for its detail.
const maxErrorBody = 64 << 10

// Executor performs single GET requests and classifies the result.
// It never retries.
type Executor struct {
	client  *http.Client
	builder *RequestBuilder
	tracing *tracing.Provider
}

// NewExecutor creates an executor. A nil tracing provider disables spans.
func NewExecutor(client *http.Client, builder *RequestBuilder, tp *tracing.Provider) *Executor {
	if client == nil {
		client = NewClient(0)
	}
	if builder == nil {
		builder = &RequestBuilder{headers: http.Header{}}
	}
	return &Executor{client: client, builder: builder, tracing: tp}
}

// Execute issues one request to endpoint, bounded by timeout. Latency spans
// from send to the fully drained body.
func (e *Executor) Execute(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome {
	ctx, span := tracing.StartRequestSpan(ctx, e.tracing.Tracer(), http.MethodGet, endpoint)
	outcome := e.execute(ctx, endpoint, timeout)
	tracing.EndOutcomeSpan(span, outcome)
	return outcome
}

func (e *Executor) execute(ctx context.Context, endpoint string, timeout time.Duration) metrics.Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := e.builder.Build(reqCtx, endpoint)
	if err != nil {
		return metrics.ConnectionFailure(0, "ClientError: "+err.Error())
	}
	if e.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(reqCtx, req.Header)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return classifyError(reqCtx, err, time.Since(start), timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		_, err = io.Copy(io.Discard, resp.Body)
		latency := time.Since(start)
		if err != nil {
			return classifyError(reqCtx, err, latency, timeout)
		}
		return metrics.Success(latency, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		_, err = io.Copy(io.Discard, resp.Body)
	}
	latency := time.Since(start)
	if err != nil && isTimeout(reqCtx, err) {
		return metrics.Timeout(timeout)
	}
	return metrics.HTTPFailure(latency, resp.StatusCode, errorDetail(resp.StatusCode, body))
}

func classifyError(ctx context.Context, err error, elapsed, timeout time.Duration) metrics.Outcome {
	if isTimeout(ctx, err) {
		return metrics.Timeout(timeout)
	}
	return metrics.ConnectionFailure(elapsed, "ClientError: "+err.Error())
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorDetail builds the message for a failed response: the JSON "detail",
// "message" or "error" field when present, else the start of the body.
func errorDetail(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"detail", "message", "error"} {
			if v := gjson.GetBytes(body, field); v.Exists() && v.String() != "" {
				return fmt.Sprintf("HTTP %d: %s", status, v.String())
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("HTTP %d: No response body", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, truncateRunes(text, 200))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
