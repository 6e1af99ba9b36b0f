package runtime

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound is returned by CheckpointStore.Load when no snapshot
// exists for the workflow id.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted view of a run: enough to resume or inspect it
// after a process restart. Snapshots are written per step and, inside a
// revision loop, per iteration.
type Snapshot struct {
	WorkflowID   WorkflowID                `json:"workflow_id"`
	DefinitionID string                    `json:"definition_id"`
	State        WorkflowState             `json:"state"`
	Input        map[string]any            `json:"input,omitempty"`
	Outputs      map[StepID]map[string]any `json:"outputs"`
	Error        string                    `json:"error,omitempty"`
	StartedAt    time.Time                 `json:"started_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// StepRecord is one persisted step execution (or revision iteration).
type StepRecord struct {
	StepID      StepID         `json:"step_id"`
	Iteration   int            `json:"iteration"`
	Attempts    int            `json:"attempts"`
	Success     bool           `json:"success"`
	Output      map[string]any `json:"output,omitempty"`
	Error       string         `json:"error,omitempty"`
	Feedback    string         `json:"feedback,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at,omitzero"`
}

// CheckpointStore persists run snapshots for resumability. The orchestrator
// treats it as best-effort: a failing store degrades resumability, never a
// running workflow.
type CheckpointStore interface {
	Save(ctx context.Context, snap Snapshot) error
	SaveStep(ctx context.Context, id WorkflowID, rec StepRecord) error
	Load(ctx context.Context, id WorkflowID) (Snapshot, error)
}
