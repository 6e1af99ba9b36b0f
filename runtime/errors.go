package runtime

import (
	"errors"
	"fmt"
)

// ErrorType classifies error origin and retry behavior.
type ErrorType string

const (
	// ErrorTypeValidation covers input/output hook failures. Never retried.
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeExecution covers step execution failures, retryable or not.
	ErrorTypeExecution ErrorType = "execution"
	// ErrorTypeDefinition covers structural problems found before any execution.
	ErrorTypeDefinition ErrorType = "definition"
	// ErrorTypeLookup covers missing registry or definition entries.
	ErrorTypeLookup ErrorType = "lookup"
)

// ErrorCode identifies known engine error codes.
type ErrorCode string

const (
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeExecutionFailed      ErrorCode = "EXECUTION_FAILED"
	CodeRetriesExhausted     ErrorCode = "RETRIES_EXHAUSTED"
	CodeMaxRevisionsExceeded ErrorCode = "MAX_REVISIONS_EXCEEDED"
	CodeCircularDependency   ErrorCode = "CIRCULAR_DEPENDENCY"
	CodeDuplicateStepID      ErrorCode = "DUPLICATE_STEP_ID"
	CodeInvalidDependency    ErrorCode = "INVALID_DEPENDENCY"
	CodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	CodeStepNotFound         ErrorCode = "STEP_NOT_FOUND"
	CodeWorkflowNotFound     ErrorCode = "WORKFLOW_NOT_FOUND"
	CodeRunCancelled         ErrorCode = "RUN_CANCELLED"
)

// WorkflowError is the canonical error type propagated through a run.
// It is JSON-serializable so it can be stored in checkpoints and returned
// over the HTTP surface.
type WorkflowError struct {
	Type      ErrorType      `json:"type"`
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Step      StepID         `json:"step,omitempty"`
	Field     string         `json:"field,omitempty"`
	Retryable bool           `json:"retryable"`
	Attempts  int            `json:"attempts,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

func (e *WorkflowError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s/%s] %s (step: %s)", e.Type, e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Type, e.Code, e.Message)
}

// IsRetryable reports whether the engine may retry the failed operation.
func (e *WorkflowError) IsRetryable() bool {
	return e.Type == ErrorTypeExecution && e.Retryable
}

// ToMap converts the error to a map suitable for expression contexts and
// checkpoint payloads.
func (e *WorkflowError) ToMap() map[string]any {
	return map[string]any{
		"type":      string(e.Type),
		"code":      string(e.Code),
		"message":   e.Message,
		"step":      string(e.Step),
		"retryable": e.Retryable,
	}
}

func NewValidationError(step StepID, field, message string) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeValidation,
		Code:    CodeValidationFailed,
		Message: message,
		Step:    step,
		Field:   field,
	}
}

func NewExecutionError(step StepID, message string, retryable bool) *WorkflowError {
	return &WorkflowError{
		Type:      ErrorTypeExecution,
		Code:      CodeExecutionFailed,
		Message:   message,
		Step:      step,
		Retryable: retryable,
	}
}

func NewRetriesExhausted(step StepID, attempts int, lastErr string) *WorkflowError {
	return &WorkflowError{
		Type:     ErrorTypeExecution,
		Code:     CodeRetriesExhausted,
		Message:  fmt.Sprintf("retries exhausted after %d attempts: %s", attempts, lastErr),
		Step:     step,
		Attempts: attempts,
	}
}

func NewMaxRevisionsExceeded(step StepID, attempts int) *WorkflowError {
	return &WorkflowError{
		Type:     ErrorTypeExecution,
		Code:     CodeMaxRevisionsExceeded,
		Message:  fmt.Sprintf("maximum revisions exceeded: %d attempts", attempts),
		Step:     step,
		Attempts: attempts,
	}
}

func NewCircularDependency(step StepID) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeDefinition,
		Code:    CodeCircularDependency,
		Message: fmt.Sprintf("circular dependency involving step %q", step),
		Step:    step,
	}
}

func NewDuplicateStepID(step StepID) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeDefinition,
		Code:    CodeDuplicateStepID,
		Message: fmt.Sprintf("duplicate step id %q", step),
		Step:    step,
	}
}

func NewInvalidDependency(step, missing StepID) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeDefinition,
		Code:    CodeInvalidDependency,
		Message: fmt.Sprintf("step %q depends on unknown step %q", step, missing),
		Step:    step,
		Meta:    map[string]any{"missing": string(missing)},
	}
}

func NewInvalidTransition(reason string) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeDefinition,
		Code:    CodeInvalidTransition,
		Message: reason,
	}
}

func NewStepNotFound(step StepID) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeLookup,
		Code:    CodeStepNotFound,
		Message: fmt.Sprintf("step not found: %s", step),
		Step:    step,
	}
}

func NewWorkflowNotFound(id string) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeLookup,
		Code:    CodeWorkflowNotFound,
		Message: fmt.Sprintf("workflow not found: %s", id),
	}
}

func NewRunCancelled(step StepID) *WorkflowError {
	return &WorkflowError{
		Type:    ErrorTypeExecution,
		Code:    CodeRunCancelled,
		Message: "run cancelled",
		Step:    step,
	}
}

// AsWorkflowError unwraps err into a *WorkflowError if possible.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}
