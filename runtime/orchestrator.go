package runtime

import (
	"fmt"
	"log/slog"
	"time"
)

// InputKey is the reserved key the original workflow input is published
// under in every step's input map.
const InputKey = "input"

// ConfigKey carries the step definition's configuration bag.
const ConfigKey = "config"

// PreviousKey and FeedbackKey carry the prior output and the validator's
// feedback into a reviser re-execution.
const (
	PreviousKey = "previous"
	FeedbackKey = "feedback"
)

// Orchestrator resolves a definition into an execution order, drives the
// engine for each step, and runs the bounded revision loops. One
// orchestrator may serve many concurrent runs; all per-run state lives in
// the Execution and WorkflowResult.
type Orchestrator struct {
	l           *slog.Logger
	registry    *Registry
	engine      *Engine
	checkpoints CheckpointStore
}

// NewOrchestrator wires an orchestrator. checkpoints may be nil, in which
// case runs are not resumable but behave identically.
func NewOrchestrator(l *slog.Logger, registry *Registry, engine *Engine, checkpoints CheckpointStore) *Orchestrator {
	return &Orchestrator{
		l:           l,
		registry:    registry,
		engine:      engine,
		checkpoints: checkpoints,
	}
}

// Run executes the workflow described by exec.Definition to a terminal
// state. Step execution is strictly sequential: the topological order
// guarantees every dependency's output exists before its dependents start.
func (o *Orchestrator) Run(exec *Execution, input map[string]any) *WorkflowResult {
	def := exec.Definition
	result := newWorkflowResult(exec.ID, def.ID)
	exec.Store.Set(InputKey, input)

	o.l.InfoContext(exec, "run started",
		"workflow_id", string(exec.ID),
		"definition", def.ID,
		"steps", len(def.Steps))

	if err := def.Validate(); err != nil {
		we, _ := AsWorkflowError(err)
		result.markFailed(we)
		o.checkpointRun(exec, result, input)
		return result
	}

	order, err := TopologicalSort(def.Steps)
	if err != nil {
		we, _ := AsWorkflowError(err)
		result.markFailed(we)
		o.checkpointRun(exec, result, input)
		return result
	}

	skipped := make(map[StepID]bool)
	decisions := make(map[StepID]StepResult)

	for _, id := range order {
		if exec.Err() != nil {
			result.markCancelled(id)
			o.checkpointRun(exec, result, input)
			return result
		}

		stepDef, _ := def.Step(id)

		skip, err := o.shouldSkip(def, id, result, skipped)
		if err != nil {
			we, _ := AsWorkflowError(err)
			result.markFailed(we)
			o.checkpointRun(exec, result, input)
			return result
		}
		if skip {
			o.l.InfoContext(exec, "skipping step", "step", string(id))
			skipped[id] = true
			continue
		}

		se, runErr := o.runStep(exec, result, stepDef, o.buildInput(stepDef, result, input), 0)
		if runErr != nil {
			o.failRun(exec, result, id, runErr, input)
			return result
		}
		decisions[id] = se.Result
		o.checkpointRun(exec, result, input)
	}

	for _, loop := range def.RevisionLoops() {
		if skipped[loop.Reviser] || skipped[loop.Validator] {
			continue
		}
		if done := o.runRevisionLoop(exec, result, loop, decisions, input); done {
			return result
		}
	}

	result.markCompleted()
	o.checkpointRun(exec, result, input)
	o.l.InfoContext(exec, "run completed",
		"workflow_id", string(exec.ID),
		"duration", result.Duration().String())
	return result
}

// runRevisionLoop drives one reviser/validator negotiation to Passed or a
// terminal failure. Returns true when the whole run is terminal.
//
// The iteration counter starts at zero for the base pass. Every
// NeedsRevision decision costs one revise/validate cycle; when the counter
// would exceed MaxIterations the run fails with MAX_REVISIONS_EXCEEDED
// rather than silently accepting a failing validation.
func (o *Orchestrator) runRevisionLoop(exec *Execution, result *WorkflowResult, loop Transition, decisions map[StepID]StepResult, input map[string]any) bool {
	def := exec.Definition
	decision := decisions[loop.Validator]
	iteration := 0
	maxIterations := o.revisionBound(loop)

	for decision.IsNeedsRevision() {
		if exec.Err() != nil {
			result.markCancelled(loop.Reviser)
			o.checkpointRun(exec, result, input)
			return true
		}

		if iteration >= maxIterations {
			o.l.WarnContext(exec, "maximum revisions exceeded",
				"reviser", string(loop.Reviser),
				"validator", string(loop.Validator),
				"attempts", maxIterations)
			result.markFailed(NewMaxRevisionsExceeded(loop.Reviser, maxIterations))
			o.checkpointRun(exec, result, input)
			return true
		}
		iteration++
		result.State = StateWaitingForRevision

		o.l.InfoContext(exec, "revision requested",
			"reviser", string(loop.Reviser),
			"iteration", iteration,
			"feedback", decision.Feedback)

		reviserDef, _ := def.Step(loop.Reviser)
		reviseInput := o.buildInput(reviserDef, result, input)
		reviseInput[PreviousKey] = result.Outputs[loop.Reviser]
		reviseInput[FeedbackKey] = decision.Feedback

		if _, err := o.runStep(exec, result, reviserDef, reviseInput, iteration); err != nil {
			o.failRun(exec, result, loop.Reviser, err, input)
			return true
		}

		validatorDef, _ := def.Step(loop.Validator)
		se, err := o.runStep(exec, result, validatorDef, o.buildInput(validatorDef, result, input), iteration)
		if err != nil {
			o.failRun(exec, result, loop.Validator, err, input)
			return true
		}

		decision = se.Result
		decisions[loop.Validator] = decision
		result.State = StateRunning
		o.checkpointRun(exec, result, input)
	}

	o.l.InfoContext(exec, "revision loop passed",
		"validator", string(loop.Validator),
		"iterations", iteration)
	return false
}

// revisionBound resolves the loop's iteration limit: an explicit
// max_iterations wins, otherwise the reviser step's MaxRevisions applies.
func (o *Orchestrator) revisionBound(loop Transition) int {
	if loop.MaxIterations > 0 {
		return loop.MaxIterations
	}
	if step, err := o.registry.Get(loop.Reviser); err == nil {
		return step.MaxRevisions()
	}
	return 0
}

// runStep executes one step through the engine and records output,
// metadata, and the per-iteration audit entry.
func (o *Orchestrator) runStep(exec *Execution, result *WorkflowResult, stepDef StepDefinition, input map[string]any, iteration int) (*StepExecution, error) {
	step, err := o.registry.Get(stepDef.ID)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now()
	se, err := o.engine.ExecuteStep(exec, step, input)
	if err != nil {
		we, _ := AsWorkflowError(err)
		failed := StepMetadata{
			StepID:      stepDef.ID,
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
			Attempts:    we.Attempts,
			Success:     false,
			Error:       we.Message,
		}
		result.StepMetadata[metadataKey(stepDef.ID, iteration)] = failed
		o.saveStepRecord(exec, stepDef.ID, iteration, failed, nil)
		return nil, we
	}

	result.Outputs[stepDef.ID] = se.Output
	exec.Store.SetNested("steps."+string(stepDef.ID), se.Output)

	md := se.Metadata
	if iteration == 0 {
		result.StepMetadata[string(stepDef.ID)] = md
		o.saveStepRecord(exec, stepDef.ID, 0, md, se.Output)
		return se, nil
	}

	md.RevisionCount = iteration
	result.StepMetadata[metadataKey(stepDef.ID, iteration)] = md

	// The canonical entry reflects the step overall: base start, latest
	// completion, total attempts, and the revision count so far.
	canonical := result.StepMetadata[string(stepDef.ID)]
	canonical.Attempts += md.Attempts
	canonical.CompletedAt = md.CompletedAt
	canonical.Success = md.Success
	canonical.RevisionCount = iteration
	canonical.Feedback = md.Feedback
	result.StepMetadata[string(stepDef.ID)] = canonical

	o.saveStepRecord(exec, stepDef.ID, iteration, md, se.Output)
	return se, nil
}

// buildInput assembles a step's input: the outputs of its declared
// dependencies keyed by step id, the original workflow input under the
// reserved "input" key, and the definition's config bag.
func (o *Orchestrator) buildInput(stepDef StepDefinition, result *WorkflowResult, input map[string]any) map[string]any {
	in := map[string]any{InputKey: input}
	if len(stepDef.Config) > 0 {
		in[ConfigKey] = stepDef.Config
	}
	for _, dep := range stepDef.DependsOn {
		if out, ok := result.Outputs[dep]; ok {
			in[string(dep)] = out
		}
	}
	return in
}

// shouldSkip applies conditional transitions targeting the step. A step is
// skipped when any gating predicate is false or when one of its
// dependencies was skipped.
func (o *Orchestrator) shouldSkip(def *WorkflowDefinition, id StepID, result *WorkflowResult, skipped map[StepID]bool) (bool, error) {
	stepDef, _ := def.Step(id)
	for _, dep := range stepDef.DependsOn {
		if skipped[dep] {
			return true, nil
		}
	}

	for _, t := range def.Transitions {
		if t.Kind != TransitionConditional || t.To != id {
			continue
		}
		if skipped[t.From] {
			return true, nil
		}

		env := map[string]any{}
		for k, v := range result.Outputs[t.From] {
			env[k] = v
		}
		ok, err := EvalPredicate(t.Predicate, env)
		if err != nil {
			return false, NewInvalidTransition(err.Error())
		}
		if !ok {
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) failRun(exec *Execution, result *WorkflowResult, step StepID, err error, input map[string]any) {
	we, ok := AsWorkflowError(err)
	if !ok {
		we = NewExecutionError(step, err.Error(), false)
	}

	if we.Code == CodeRunCancelled {
		result.markCancelled(step)
	} else {
		o.l.ErrorContext(exec, "run failed",
			"workflow_id", string(exec.ID),
			"step", string(step),
			"error", we.Error())
		result.markFailed(we)
	}
	o.checkpointRun(exec, result, input)
}

// checkpointRun persists a snapshot, best-effort. Store failures cost
// resumability, never the run.
func (o *Orchestrator) checkpointRun(exec *Execution, result *WorkflowResult, input map[string]any) {
	if o.checkpoints == nil {
		return
	}

	snap := Snapshot{
		WorkflowID:   result.WorkflowID,
		DefinitionID: result.DefinitionID,
		State:        result.State,
		Input:        input,
		Outputs:      result.Outputs,
		StartedAt:    result.StartedAt,
		UpdatedAt:    time.Now(),
	}
	if result.Err != nil {
		snap.Error = result.Err.Error()
	}

	if err := o.checkpoints.Save(exec, snap); err != nil {
		o.l.WarnContext(exec, "checkpoint save failed",
			"workflow_id", string(exec.ID),
			"error", err.Error())
	}
}

func (o *Orchestrator) saveStepRecord(exec *Execution, id StepID, iteration int, md StepMetadata, output map[string]any) {
	if o.checkpoints == nil {
		return
	}

	rec := StepRecord{
		StepID:      id,
		Iteration:   iteration,
		Attempts:    md.Attempts,
		Success:     md.Success,
		Output:      output,
		Error:       md.Error,
		Feedback:    md.Feedback,
		StartedAt:   md.StartedAt,
		CompletedAt: md.CompletedAt,
	}
	if err := o.checkpoints.SaveStep(exec, exec.ID, rec); err != nil {
		o.l.WarnContext(exec, "step record save failed",
			"workflow_id", string(exec.ID),
			"step", string(id),
			"error", err.Error())
	}
}

func metadataKey(id StepID, iteration int) string {
	if iteration == 0 {
		return string(id)
	}
	return fmt.Sprintf("%s#%d", id, iteration)
}
