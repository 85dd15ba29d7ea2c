package operations

import (
	"context"
	"sync"
	"time"

	"pfastats/internal/dataprocessing"
	"pfastats/internal/dataset"
	"pfastats/internal/forecast"
	"pfastats/internal/rates"
)

// Step is a single stage of the pipeline run.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() string

	// Name returns the human-readable name for this step.
	Name() string

	// Execute runs the step against the shared run state.
	Execute(ctx context.Context, state *RunState) error

	// Validate checks whether the step can execute with the current state.
	Validate(state *RunState) error
}

// StepStatus represents the current status of a step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step.
type StepState struct {
	mu        sync.RWMutex
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Message   string
	Error     error
}

// NewStepState creates a step state in the pending status.
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the step as active and sets the start time.
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed and sets the end time.
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed with the given error.
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
}

// Skip marks the step as skipped with the given reason.
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusSkipped
	s.Message = reason
}

// Duration returns the duration of the step execution.
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// RunStatus represents the overall run status.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Artifacts holds the intermediate data the steps hand to each other. The
// runner executes steps sequentially, so access needs no locking.
type Artifacts struct {
	// Outcomes are the cleaned, filtered sentencing records.
	Outcomes []dataprocessing.SentencingRecord
	// CustodyWide is the all-sentences custody crosstab, the input contract
	// of the melt.
	CustodyWide *dataprocessing.WideTable
	// Custody is the melted all-sentences custody series.
	Custody *dataset.AnnualSeries
	// Population is the prepared per-PFA population series.
	Population *dataset.AnnualSeries
	// ExtendedPopulation is Population plus projected years, when projection
	// ran; otherwise it aliases Population.
	ExtendedPopulation *dataset.AnnualSeries
	// Selection records the projection method choice, nil when no
	// projection was needed.
	Selection *forecast.Selection
	// RateRows is the merged rate table.
	RateRows []rates.MergedRateRow
	// Audit is the join-completeness audit of the merge.
	Audit *rates.JoinAudit
	// OutputFiles lists the files written, for the run summary.
	OutputFiles []string
}

// RunState represents the complete state of one pipeline run.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    RunStatus
	StartTime time.Time
	EndTime   *time.Time

	Steps map[string]*StepState
	Error error

	Artifacts *Artifacts
}

// NewRunState creates a run state in the pending status.
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Artifacts: &Artifacts{},
	}
}

// Start marks the run as running.
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed.
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed.
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err
}

// GetStep returns the state of a specific step.
func (r *RunState) GetStep(stepID string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Steps[stepID]
}

// SetStep records the state of a specific step.
func (r *RunState) SetStep(stepID string, state *StepState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps[stepID] = state
}

// Duration returns the duration of the run.
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// HasFailures returns true if any step has failed.
func (r *RunState) HasFailures() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, step := range r.Steps {
		if step.Status == StepStatusFailed {
			return true
		}
	}
	return false
}
