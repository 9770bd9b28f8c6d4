package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// RequestIDHeader carries the per-request correlation ID on outbound calls.
const RequestIDHeader = "X-Request-ID"

// RequestIDContextKey is a context key for a caller-chosen outbound request ID.
type RequestIDContextKey struct{}

// WithRequestID returns a context whose outbound requests use id instead of a generated one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDContextKey{}).(string)
	return id, ok && id != ""
}

// loggingTransport tags outbound requests with a request ID and W3C trace
// context, and logs each round trip at debug level.
type loggingTransport struct {
	base http.RoundTripper
}

// Logging wraps base (http.DefaultTransport when nil) with request ID
// propagation, trace context injection and debug logging.
// Headers and bodies are never logged; they carry credentials.
func Logging(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.New().String()
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	out.Header.Set(RequestIDHeader, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	start := time.Now()
	resp, err := t.base.RoundTrip(out)
	attrs := []any{
		"request_id", requestID,
		"method", out.Method,
		"host", out.URL.Host,
		"path", out.URL.Path,
		"duration", time.Since(start),
	}
	if err != nil {
		slog.DebugContext(ctx, "outbound request failed", append(attrs, "error", err)...)
		return nil, err
	}

	slog.DebugContext(ctx, "outbound request", append(attrs, "status", resp.StatusCode)...)
	return resp, nil
}
