package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationScope names the OpenTelemetry logger.
const instrumentationScope = "github.com/florianilch/infusionsoft"

// Log formats accepted by Instrument.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatOTel     = "otel"
	FormatOTLPHTTP = "otlp-http"
	FormatOTLPGRPC = "otlp-grpc"
)

// ShutdownFunc flushes buffered log records.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger for the given level and format.
// Text and JSON go to stderr so command output on stdout stays machine-readable.
// The OTLP formats read their endpoint from the standard OTEL_EXPORTER_OTLP_* variables.
func Instrument(ctx context.Context, level slog.Level, logFormat string) (ShutdownFunc, error) {
	return instrument(ctx, os.Stderr, level, logFormat)
}

func instrument(ctx context.Context, w io.Writer, level slog.Level, logFormat string) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	// W3C trace context and baggage travel on outbound API calls and are read from redirects.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	switch strings.ToLower(logFormat) {
	case FormatText, FormatJSON:
		handler, err := newStdoutHandler(w, level, logFormat)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(newTraceContextHandler(handler)))
		return noop, nil

	case FormatOTel, FormatOTLPHTTP, FormatOTLPGRPC:
		exporter, err := newExporter(ctx, w, strings.ToLower(logFormat))
		if err != nil {
			return nil, fmt.Errorf("creating %s log exporter: %w", logFormat, err)
		}

		processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(level))
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))

		// otelslog correlates trace context itself.
		slog.SetDefault(slog.New(otelslog.NewHandler(instrumentationScope, otelslog.WithLoggerProvider(provider))))
		return provider.Shutdown, nil

	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: %s, %s, %s, %s, %s)",
			logFormat, FormatText, FormatJSON, FormatOTel, FormatOTLPHTTP, FormatOTLPGRPC)
	}
}

// newStdoutHandler creates a handler for human-readable or structured local logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(logFormat) {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts), nil
	case FormatText:
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}
}

func newExporter(ctx context.Context, w io.Writer, logFormat string) (sdklog.Exporter, error) {
	switch logFormat {
	case FormatOTLPHTTP:
		return otlploghttp.New(ctx)
	case FormatOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return stdoutlog.New(stdoutlog.WithWriter(w))
	}
}

// severity maps a slog level to the minimum OpenTelemetry severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
