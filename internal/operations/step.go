package operations

import (
	"context"
	"time"
)

// StepStatus represents the current status of a Step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// Step identifiers, also used as WebSocket progress step names
const (
	StepIDDescribe     = "describe"
	StepIDOutliers     = "outliers"
	StepIDCorrelations = "correlations"
	StepIDTrend        = "trend"
	StepIDExport       = "export"
)

// Step represents a single step of the report pipeline
type Step interface {
	// ID returns the unique identifier for this Step
	ID() string

	// Name returns the human-readable name for this Step
	Name() string

	// Validate checks if the Step can be executed with the current state
	Validate(state *ReportState) error

	// Execute runs the Step against the shared report state
	Execute(ctx context.Context, state *ReportState) error
}

// StepRecord captures one executed step for the job result
type StepRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	Error       string     `json:"error,omitempty"`
}

// ProgressSink receives step transitions for live progress updates
type ProgressSink interface {
	StepStarted(jobID, stepID string)
	StepCompleted(jobID, stepID string)
	StepFailed(jobID, stepID string, err error)
}

// NopSink discards all progress events
type NopSink struct{}

func (NopSink) StepStarted(jobID, stepID string)           {}
func (NopSink) StepCompleted(jobID, stepID string)         {}
func (NopSink) StepFailed(jobID, stepID string, err error) {}
