package callback

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/httplog/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type queryContextKey struct{}

// recovery answers 500 instead of dropping the connection when a handler panics.
func recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(r.Context(), "callback handler panicked", "panic", rec)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// stripQuery moves the query string into the request context so the
// authorization code never reaches the request log.
func stripQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		r2 := r.Clone(context.WithValue(r.Context(), queryContextKey{}, query))
		r2.URL.RawQuery = ""
		r2.RequestURI = r2.URL.RequestURI()
		next.ServeHTTP(w, r2)
	})
}

func queryFromContext(ctx context.Context) url.Values {
	q, _ := ctx.Value(queryContextKey{}).(url.Values)
	return q
}

// requestID echoes the browser's X-Request-ID or generates one, and adds it to the request log.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		httplog.SetAttrs(r.Context(), slog.String("request_id", id))
		next.ServeHTTP(w, r)
	})
}

// traceContext joins a W3C trace carried by the redirect, if any.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			httplog.SetAttrs(ctx,
				slog.String("trace_id", spanCtx.TraceID().String()),
				slog.String("span_id", spanCtx.SpanID().String()),
			)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logging logs each request with method, path, status and duration, never headers or bodies.
func logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		Level:              slog.LevelInfo,
		Schema:             httplog.SchemaECS.Concise(true),
		LogRequestHeaders:  []string{},
		LogResponseHeaders: []string{},
		RecoverPanics:      false,
	})
}

// chain applies middlewares so the first one is outermost.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
