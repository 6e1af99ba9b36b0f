package runtime

import (
	"context"
	"sync"
)

// RunStatus is the externally visible state of one run, served to whatever
// wraps the app (HTTP handler, CLI).
type RunStatus struct {
	WorkflowID  WorkflowID                `json:"workflow_id"`
	State       WorkflowState             `json:"state"`
	CurrentStep StepID                    `json:"current_step,omitempty"`
	Attempt     int                       `json:"attempt,omitempty"`
	Outputs     map[StepID]map[string]any `json:"outputs,omitempty"`
	Error       *WorkflowError            `json:"error,omitempty"`
	FailingStep StepID                    `json:"failing_step,omitempty"`
}

// runHandle tracks one in-flight run. It implements RunObserver so the
// engine can report the current step and attempt while the run progresses.
type runHandle struct {
	mu      sync.Mutex
	id      WorkflowID
	state   WorkflowState
	current StepID
	attempt int
	result  *WorkflowResult
}

func (h *runHandle) OnStepStart(step StepID, attempt int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = step
	h.attempt = attempt
}

func (h *runHandle) complete(result *WorkflowResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result = result
	h.state = result.State
}

func (h *runHandle) status() RunStatus {
	h.mu.Lock()
	defer h.mu.Unlock()

	status := RunStatus{
		WorkflowID:  h.id,
		State:       h.state,
		CurrentStep: h.current,
		Attempt:     h.attempt,
	}
	if h.result != nil {
		status.State = h.result.State
		status.Outputs = h.result.Outputs
		if h.result.Err != nil {
			status.Error = h.result.Err
			status.FailingStep = h.result.Err.Step
		}
	}
	return status
}

// App owns the validated definitions, the step registry, and the run
// table. It is the process-level composition the HTTP surface wraps.
type App struct {
	Definitions  map[string]*WorkflowDefinition
	Registry     *Registry
	orchestrator *Orchestrator

	capability       any
	globalProperties map[string]any

	mu   sync.RWMutex
	runs map[WorkflowID]*runHandle
}

// NewApp loads every definition in definitionsDir and wires the app. The
// capability handle is passed to every run's Execution; steps assert the
// concrete type they need.
func NewApp(definitionsDir string, registry *Registry, orchestrator *Orchestrator, capability any, globalProperties map[string]any) (*App, error) {
	defs, err := LoadDefinitions(definitionsDir)
	if err != nil {
		return nil, err
	}

	return &App{
		Definitions:      defs,
		Registry:         registry,
		orchestrator:     orchestrator,
		capability:       capability,
		globalProperties: globalProperties,
		runs:             make(map[WorkflowID]*runHandle),
	}, nil
}

// RegisterDefinition adds a programmatically built definition. It must
// pass structural validation; definition-time errors abort registration.
func (a *App) RegisterDefinition(def *WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Definitions == nil {
		a.Definitions = make(map[string]*WorkflowDefinition)
	}
	a.Definitions[def.ID] = def
	return nil
}

// Start launches a run of the named definition and returns its workflow
// id immediately; the run proceeds asynchronously under ctx.
func (a *App) Start(ctx context.Context, definitionID string, input map[string]any) (WorkflowID, error) {
	a.mu.RLock()
	def, ok := a.Definitions[definitionID]
	a.mu.RUnlock()
	if !ok {
		return "", NewWorkflowNotFound(definitionID)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	// The run outlives the caller's request; keep its values but detach
	// from its cancellation.
	exec, err := NewExecution(context.WithoutCancel(ctx), def, a.globalProperties)
	if err != nil {
		return "", err
	}
	exec.Capability = a.capability

	handle := &runHandle{id: exec.ID, state: StateRunning}
	exec.Observer = handle

	a.mu.Lock()
	a.runs[exec.ID] = handle
	a.mu.Unlock()

	go func() {
		handle.complete(a.orchestrator.Run(exec, input))
	}()

	return exec.ID, nil
}

// Status reports the current state of a run.
func (a *App) Status(id WorkflowID) (RunStatus, error) {
	a.mu.RLock()
	handle, ok := a.runs[id]
	a.mu.RUnlock()
	if !ok {
		return RunStatus{}, NewWorkflowNotFound(string(id))
	}
	return handle.status(), nil
}
