package runtime

import "github.com/google/uuid"

// StepID names a step within one workflow definition. Human-readable,
// unique within the definition, used as a map key and log field.
type StepID string

// WorkflowID names one running workflow instance. Random UUID, never reused.
type WorkflowID string

func NewWorkflowID() WorkflowID {
	return WorkflowID(uuid.New().String())
}

// ResultKind tags the outcome of a step execution.
type ResultKind string

const (
	ResultSuccess       ResultKind = "success"
	ResultNeedsRevision ResultKind = "needs_revision"
	ResultFailed        ResultKind = "failed"
)

// StepResult is the outcome of a single step execution attempt.
//
// The set of kinds is closed today but consumers must switch with a default
// arm; unknown kinds are treated as non-retryable failures so new variants
// can be added without breaking call sites.
type StepResult struct {
	Kind      ResultKind     `json:"kind"`
	Output    map[string]any `json:"output,omitempty"`
	Feedback  string         `json:"feedback,omitempty"`
	Err       string         `json:"error,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// Succeed builds a Success result carrying the step's output.
func Succeed(output map[string]any) StepResult {
	return StepResult{Kind: ResultSuccess, Output: output}
}

// RequestRevision builds a NeedsRevision result. The output is this step's
// own product (e.g. critique text); the feedback tells the revision source
// what to improve.
func RequestRevision(output map[string]any, feedback string) StepResult {
	return StepResult{Kind: ResultNeedsRevision, Output: output, Feedback: feedback}
}

// Fail builds a Failed result. Retryable failures may be re-attempted by the
// engine up to the step's retry policy.
func Fail(err string, retryable bool) StepResult {
	return StepResult{Kind: ResultFailed, Err: err, Retryable: retryable}
}

func (r StepResult) IsSuccess() bool       { return r.Kind == ResultSuccess }
func (r StepResult) IsNeedsRevision() bool { return r.Kind == ResultNeedsRevision }
func (r StepResult) IsFailed() bool        { return r.Kind == ResultFailed }

// IsRetryable reports whether the result is a retryable failure.
func (r StepResult) IsRetryable() bool {
	return r.Kind == ResultFailed && r.Retryable
}

// Payload returns the output carried by a Success or NeedsRevision result.
func (r StepResult) Payload() map[string]any {
	switch r.Kind {
	case ResultSuccess, ResultNeedsRevision:
		return r.Output
	default:
		return nil
	}
}

// Step is the contract every unit of work implements. Instances are
// logically stateless between invocations; per-run state travels in the
// input map or the shared Execution.
//
// Execute is the only operation permitted to perform I/O. It receives the
// Execution as context (workflow id, current attempt, capability handle).
type Step interface {
	ID() StepID
	Name() string

	// ValidateInput is checked by the engine before execution. A failure is
	// permanent and never retried.
	ValidateInput(input map[string]any) error

	// ValidateOutput is checked against the payload of a Success or
	// NeedsRevision result.
	ValidateOutput(output map[string]any) error

	// MaxRevisions bounds how often this step may be re-executed by a
	// revision loop that names it as reviser. A transition with an
	// explicit max_iterations overrides it.
	MaxRevisions() int

	RetryPolicy() RetryPolicy

	Execute(exec *Execution, input map[string]any) StepResult
}

// BaseStep supplies the contract defaults: validation hooks that always
// pass, three revisions, and the default retry policy. Concrete steps embed
// it and override what they need.
type BaseStep struct{}

func (BaseStep) ValidateInput(map[string]any) error  { return nil }
func (BaseStep) ValidateOutput(map[string]any) error { return nil }
func (BaseStep) MaxRevisions() int                   { return 3 }
func (BaseStep) RetryPolicy() RetryPolicy            { return DefaultRetryPolicy }
