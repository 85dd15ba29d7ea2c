package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pfastats/internal/infrastructure"
)

// Runner executes the pipeline steps in order. Each step runs inside its own
// trace span and carries the run ID through its context so every log line of
// a run is correlatable.
type Runner struct {
	logger *slog.Logger
	tracer trace.Tracer
	steps  []Step
}

// NewRunner creates a runner over the given steps. Steps execute in slice
// order.
func NewRunner(logger *slog.Logger, tracer trace.Tracer, steps []Step) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger: logger,
		tracer: tracer,
		steps:  steps,
	}
}

// Run executes all steps sequentially and fails fast on the first error.
// The returned state carries per-step statuses and the run's artifacts even
// when the run failed, so the caller can report how far it got.
func (r *Runner) Run(ctx context.Context) (*RunState, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)

	state := NewRunState(runID)
	state.Start()

	ctx, runSpan := r.startSpan(ctx, "pipeline.run",
		attribute.String("run_id", runID),
		attribute.Int("steps", len(r.steps)))
	defer runSpan.End()

	r.logger.InfoContext(ctx, "pipeline run starting",
		slog.String("run_id", runID),
		slog.Int("steps", len(r.steps)))

	for _, step := range r.steps {
		stepState := NewStepState(step.ID(), step.Name())
		state.SetStep(step.ID(), stepState)

		if err := r.runStep(ctx, step, stepState, state); err != nil {
			state.Fail(err)
			r.logger.ErrorContext(ctx, "pipeline run failed",
				slog.String("run_id", runID),
				slog.String("step", step.ID()),
				slog.Duration("duration", state.Duration()),
				slog.String("error", err.Error()))
			infrastructure.RecordError(ctx, err)
			return state, err
		}
	}

	state.Complete()
	r.logger.InfoContext(ctx, "pipeline run completed",
		slog.String("run_id", runID),
		slog.Duration("duration", state.Duration()),
		slog.Int("output_files", len(state.Artifacts.OutputFiles)))

	return state, nil
}

// runStep executes one step with validation, tracing and status accounting.
func (r *Runner) runStep(ctx context.Context, step Step, stepState *StepState, state *RunState) error {
	ctx, span := r.startSpan(ctx, fmt.Sprintf("step.%s", step.ID()),
		attribute.String("step.id", step.ID()),
		attribute.String("step.name", step.Name()))
	defer span.End()

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("step %s validation: %w", step.ID(), err)
	}

	stepState.Start()
	r.logger.InfoContext(ctx, "step starting", slog.String("step", step.ID()))

	start := time.Now()
	if err := step.Execute(ctx, state); err != nil {
		stepState.Fail(err)
		infrastructure.RecordError(ctx, err)
		return fmt.Errorf("step %s: %w", step.ID(), err)
	}

	// A step may mark itself skipped during Execute; don't overwrite that.
	if stepState.Status == StepStatusActive {
		stepState.Complete()
	}

	r.logger.InfoContext(ctx, "step finished",
		slog.String("step", step.ID()),
		slog.String("status", string(stepState.Status)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

func (r *Runner) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
