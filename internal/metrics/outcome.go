package metrics

import (
	"fmt"
	"time"
)

// Outcome is the result of a single request.
type Outcome struct {
	Latency    time.Duration
	StatusCode int // 0 when no response was received
	Succeeded  bool
	ErrorKind  ErrorKind
	Detail     string
}

// Success builds the outcome of a 2xx/3xx response.
func Success(latency time.Duration, status int) Outcome {
	return Outcome{Latency: latency, StatusCode: status, Succeeded: true, ErrorKind: ErrorKindNone}
}

// Timeout builds a timeout outcome. The latency is the timeout itself so that
// percentile math always has a defined input.
func Timeout(timeout time.Duration) Outcome {
	return Outcome{Latency: timeout, ErrorKind: ErrorKindTimeout, Detail: "Timeout"}
}

// ConnectionFailure builds the outcome of a request that never got a response.
func ConnectionFailure(elapsed time.Duration, detail string) Outcome {
	return Outcome{Latency: elapsed, ErrorKind: ErrorKindConnection, Detail: NormalizeDetail(detail)}
}

// HTTPFailure builds the outcome of a response with status >= 400.
func HTTPFailure(latency time.Duration, status int, detail string) Outcome {
	detail = NormalizeDetail(detail)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", status)
	}
	return Outcome{Latency: latency, StatusCode: status, ErrorKind: ErrorKindHTTP, Detail: detail}
}

// LatencyMs returns the latency in fractional milliseconds.
func (o Outcome) LatencyMs() float64 {
	return durationMs(o.Latency)
}

// HasStatus reports whether a status code was received.
func (o Outcome) HasStatus() bool {
	return o.StatusCode > 0
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
