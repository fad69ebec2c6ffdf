package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/capfire/internal/metrics"
)

// StartRequestSpan starts a client span for one request to endpoint.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, endpoint string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", endpoint),
	)
	return ctx, span
}

// EndOutcomeSpan records the classified outcome on span and ends it.
func EndOutcomeSpan(span trace.Span, o metrics.Outcome) {
	span.SetAttributes(
		attribute.Float64("capfire.latency_ms", o.LatencyMs()),
		attribute.String("capfire.error_kind", string(o.ErrorKind)),
	)
	if o.HasStatus() {
		span.SetAttributes(attribute.Int("http.response.status_code", o.StatusCode))
	}
	if o.Succeeded {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, o.Detail)
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
