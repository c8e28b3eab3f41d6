// Package tracing sets up an OpenTelemetry tracer provider for the
// execution core, following the teacher's console-exporter pattern for
// local/CLI use: every pipeline call becomes a span without requiring an
// OTLP collector.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewProvider returns a TracerProvider that exports spans as JSON to w. A
// nil w gives a provider with no exporter, which discards spans.
func NewProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	if w == nil {
		return sdktrace.NewTracerProvider(), nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}

// Tracer is the execution core's tracer, named after the module so spans
// are attributable when multiple libraries share a collector.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/corvyn/toolcore")
}

// Shutdown flushes and stops the provider, ignoring a nil provider so
// callers can defer it unconditionally.
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
