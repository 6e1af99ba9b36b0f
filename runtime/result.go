package runtime

import "time"

// WorkflowState is the lifecycle state of a workflow run.
type WorkflowState string

const (
	StatePending            WorkflowState = "pending"
	StateRunning            WorkflowState = "running"
	StateWaitingForRevision WorkflowState = "waiting_for_revision"
	// StatePaused is reserved for externally suspended runs; the run loop
	// itself never pauses.
	StatePaused    WorkflowState = "paused"
	StateCompleted WorkflowState = "completed"
	StateFailed    WorkflowState = "failed"
	StateCancelled WorkflowState = "cancelled"
)

// IsTerminal reports whether the state admits no further transitions.
func (s WorkflowState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// IsActive reports whether the run is still making progress.
func (s WorkflowState) IsActive() bool {
	return s == StateRunning || s == StateWaitingForRevision
}

// StepMetadata records one step execution (or one revision-loop iteration,
// keyed "<step>#<iteration>") for the audit trail.
type StepMetadata struct {
	StepID        StepID    `json:"step_id"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at,omitzero"`
	Attempts      int       `json:"attempts"`
	RevisionCount int       `json:"revision_count"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
}

// Duration returns how long the step ran, zero if it never completed.
func (m StepMetadata) Duration() time.Duration {
	if m.CompletedAt.IsZero() {
		return 0
	}
	return m.CompletedAt.Sub(m.StartedAt)
}

// WorkflowResult accumulates the outcome of one run. Mutated only by the
// orchestrator that owns the run; immutable once a terminal state is set.
type WorkflowResult struct {
	WorkflowID   WorkflowID              `json:"workflow_id"`
	DefinitionID string                  `json:"definition_id"`
	State        WorkflowState           `json:"state"`
	Outputs      map[StepID]map[string]any `json:"outputs"`
	StepMetadata map[string]StepMetadata `json:"step_metadata"`
	StartedAt    time.Time               `json:"started_at"`
	CompletedAt  time.Time               `json:"completed_at,omitzero"`
	Err          *WorkflowError          `json:"error,omitempty"`
}

func newWorkflowResult(id WorkflowID, definitionID string) *WorkflowResult {
	return &WorkflowResult{
		WorkflowID:   id,
		DefinitionID: definitionID,
		State:        StateRunning,
		Outputs:      make(map[StepID]map[string]any),
		StepMetadata: make(map[string]StepMetadata),
		StartedAt:    time.Now(),
	}
}

func (r *WorkflowResult) markCompleted() {
	if r.State.IsTerminal() {
		return
	}
	r.State = StateCompleted
	r.CompletedAt = time.Now()
}

func (r *WorkflowResult) markFailed(err *WorkflowError) {
	if r.State.IsTerminal() {
		return
	}
	r.State = StateFailed
	r.Err = err
	r.CompletedAt = time.Now()
}

func (r *WorkflowResult) markCancelled(step StepID) {
	if r.State.IsTerminal() {
		return
	}
	r.State = StateCancelled
	r.Err = NewRunCancelled(step)
	r.CompletedAt = time.Now()
}

// Duration returns total run time, zero while the run is still active.
func (r *WorkflowResult) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
