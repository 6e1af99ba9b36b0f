package runtime

import (
	"log/slog"
	"time"
)

// StepExecution packages one engine invocation: the step's result, the
// validated output payload, timing metadata, and the ordered trace.
type StepExecution struct {
	Result   StepResult
	Output   map[string]any
	Metadata StepMetadata
	Trace    []TraceEvent
}

// Engine runs one step per call: validate input, execute with retry and
// backoff, validate output, record metadata and trace events.
type Engine struct {
	l *slog.Logger
}

func NewEngine(l *slog.Logger) *Engine {
	return &Engine{l: l}
}

// ExecuteStep runs a single step to a decision.
//
// Retryable failures are retried transparently up to the step's policy and
// then surfaced as RETRIES_EXHAUSTED. Non-retryable failures and validation
// failures are never retried. Success and NeedsRevision both stop the retry
// loop; neither is a failure from the engine's point of view.
//
// On error the returned *WorkflowError carries the step id and, for
// exhausted retries, the attempt count.
func (e *Engine) ExecuteStep(exec *Execution, step Step, input map[string]any) (*StepExecution, error) {
	stepExec := exec.forAttempt(step.ID(), 0)
	trace := newTraceLog(e.l, stepExec)
	startedAt := time.Now()

	if err := step.ValidateInput(input); err != nil {
		trace.error("input validation failed", map[string]any{"error": err.Error()})
		if we, ok := AsWorkflowError(err); ok {
			return nil, we
		}
		return nil, NewValidationError(step.ID(), "", err.Error())
	}
	trace.debug("input validated", nil)

	policy := step.RetryPolicy()
	maxAttempts := policy.Attempts()

	var result StepResult
	attempt := 1

	for {
		if err := exec.Err(); err != nil {
			trace.warn("run cancelled", map[string]any{"attempt": attempt})
			return nil, NewRunCancelled(step.ID())
		}

		if exec.Observer != nil {
			exec.Observer.OnStepStart(step.ID(), attempt)
		}

		trace.info("execution started", map[string]any{"attempt": attempt})
		result = step.Execute(exec.forAttempt(step.ID(), attempt), input)

		switch result.Kind {
		case ResultSuccess:
			trace.info("execution completed", map[string]any{"attempt": attempt})
		case ResultNeedsRevision:
			trace.info("execution completed, revision requested", map[string]any{
				"attempt":  attempt,
				"feedback": result.Feedback,
			})
		case ResultFailed:
			if !result.Retryable {
				trace.error("execution failed, not retryable", map[string]any{
					"attempt": attempt,
					"error":   result.Err,
				})
				return nil, NewExecutionError(step.ID(), result.Err, false)
			}
			if attempt >= maxAttempts {
				trace.error("retries exhausted", map[string]any{
					"attempts": attempt,
					"error":    result.Err,
				})
				return nil, NewRetriesExhausted(step.ID(), attempt, result.Err)
			}

			delay := policy.DelayForAttempt(attempt)
			trace.warn("execution failed, retrying", map[string]any{
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   result.Err,
			})
			if err := sleepCtx(exec, delay); err != nil {
				return nil, NewRunCancelled(step.ID())
			}
			attempt++
			continue
		default:
			// Unknown result kinds are treated as permanent failures so new
			// variants cannot be silently accepted.
			trace.error("unknown result kind", map[string]any{"kind": string(result.Kind)})
			return nil, NewExecutionError(step.ID(), "unknown step result kind: "+string(result.Kind), false)
		}
		break
	}

	output := result.Payload()
	if err := step.ValidateOutput(output); err != nil {
		trace.error("output validation failed", map[string]any{"error": err.Error()})
		if we, ok := AsWorkflowError(err); ok {
			return nil, we
		}
		return nil, NewValidationError(step.ID(), "", err.Error())
	}
	trace.debug("output validated", nil)

	return &StepExecution{
		Result: result,
		Output: output,
		Metadata: StepMetadata{
			StepID:      step.ID(),
			StartedAt:   startedAt,
			CompletedAt: time.Now(),
			Attempts:    attempt,
			Success:     true,
			Feedback:    result.Feedback,
		},
		Trace: trace.events,
	}, nil
}

// sleepCtx waits for the retry delay, aborting early on cancellation.
func sleepCtx(exec *Execution, d time.Duration) error {
	if d <= 0 {
		return exec.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-exec.Done():
		return exec.Err()
	case <-timer.C:
		return nil
	}
}
