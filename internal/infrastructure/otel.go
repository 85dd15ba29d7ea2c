package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// ServiceName identifies this pipeline in trace output.
	ServiceName = "pfa-sentencing-pipeline"
	// ServiceVersion is the instrumentation version reported on spans.
	ServiceVersion = "1.0.0"
	tracerName     = "pfastats"
)

// TracingConfig holds trace instrumentation configuration.
type TracingConfig struct {
	Enabled bool
	// Writer receives exported spans. Defaults to stderr when nil so trace
	// output stays out of the JSON log stream.
	Writer io.Writer
}

// Tracing holds the initialized tracer provider and tracer.
type Tracing struct {
	Provider *sdktrace.TracerProvider
	Tracer   trace.Tracer
}

// InitializeTracing sets up the stdout trace exporter and registers the
// global tracer provider. Returns a no-op Tracing when disabled.
func InitializeTracing(cfg TracingConfig, logger *slog.Logger) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{Tracer: otel.Tracer(tracerName)}, nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if cfg.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing initialized", slog.String("exporter", "stdout"))

	return &Tracing{
		Provider: tp,
		Tracer:   tp.Tracer(tracerName, trace.WithInstrumentationVersion(ServiceVersion)),
	}, nil
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.Provider == nil {
		return nil
	}
	if err := t.Provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

// RecordError records an error on the current span and marks it failed.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event with string attributes to the current span.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}
