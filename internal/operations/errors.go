package operations

import (
	"errors"
	"fmt"
)

// ErrJobNotFound is returned when a job id is unknown to the store
var ErrJobNotFound = errors.New("job not found")

// ErrQueueFull is returned by Enqueue when the pending buffer is exhausted
var ErrQueueFull = errors.New("job queue is full")

// StepError wraps a step failure with the step it came from
type StepError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *StepError) Error() string {
	if e == nil {
		return "unknown step error"
	}
	if e.Cause != nil {
		return fmt.Sprintf("step %s %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("step %s %s", e.Step, e.Message)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewStepError creates a step error wrapping the cause
func NewStepError(step, message string, cause error) *StepError {
	return &StepError{Step: step, Message: message, Cause: cause}
}
