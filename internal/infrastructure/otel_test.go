package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordingTracer returns a tracer whose finished spans land in the recorder.
func recordingTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestAddSpanEvent(t *testing.T) {
	tp, recorder := recordingTracer(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "combine")
	AddSpanEvent(ctx, "join_audit", map[string]string{
		"rows":                    "42",
		"missing_population_rows": "0",
	})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)

	event := spans[0].Events()[0]
	assert.Equal(t, "join_audit", event.Name)
	attrs := make(map[attribute.Key]string, len(event.Attributes))
	for _, kv := range event.Attributes {
		attrs[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "42", attrs["rows"])
	assert.Equal(t, "0", attrs["missing_population_rows"])
}

func TestAddSpanEventWithoutSpan(t *testing.T) {
	// No span in the context; the event is dropped silently.
	AddSpanEvent(context.Background(), "join_audit", map[string]string{"rows": "1"})
}

func TestRecordError(t *testing.T) {
	tp, recorder := recordingTracer(t)

	ctx, span := tp.Tracer("test").Start(context.Background(), "combine")
	RecordError(ctx, fmt.Errorf("population series is empty"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "population series is empty", spans[0].Status().Description)
}

func TestInitializeTracingDisabled(t *testing.T) {
	tracing, err := InitializeTracing(TracingConfig{}, slog.Default())
	require.NoError(t, err)

	require.NotNil(t, tracing.Tracer)
	assert.Nil(t, tracing.Provider)
	assert.NoError(t, tracing.Shutdown(context.Background()))
}
