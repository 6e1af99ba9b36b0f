package runtime

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

var _ context.Context = &Execution{}

// RunObserver receives progress notifications during a run. Implemented by
// whatever hosts the orchestrator (the App uses it to answer status queries).
type RunObserver interface {
	OnStepStart(step StepID, attempt int)
}

// Execution is the shared, read-mostly context for one workflow run. It
// carries the workflow identifier, the accumulated value store, and the
// opaque capability handle steps reach external services through.
//
// Execution implements context.Context by delegating to the embedded ctx,
// so real deadlines and cancellations propagate through slog and step calls.
type Execution struct {
	ID         WorkflowID
	Store      *ValueStore
	Definition *WorkflowDefinition

	// Capability is the opaque handle a step's Execute may use for I/O
	// (e.g. a model client). Steps assert the concrete type they need.
	Capability any

	// Observer, when set, is notified as steps start.
	Observer RunObserver

	// StepID and Attempt identify the current engine invocation. Set by the
	// engine on a per-attempt shallow copy; zero outside step execution.
	StepID  StepID
	Attempt int

	ctx context.Context
}

func (e *Execution) Deadline() (deadline time.Time, ok bool) { return e.ctx.Deadline() }
func (e *Execution) Done() <-chan struct{}                   { return e.ctx.Done() }
func (e *Execution) Err() error                              { return e.ctx.Err() }

func (e *Execution) Value(key any) any {
	k, ok := key.(string)
	if !ok {
		return e.ctx.Value(key)
	}

	v, _ := e.Store.Get(k)
	return v
}

// WithContext returns a shallow copy of the Execution with a new embedded
// context. Mirrors the http.Request.WithContext pattern.
func (e *Execution) WithContext(ctx context.Context) *Execution {
	copy := *e
	copy.ctx = ctx
	return &copy
}

// forAttempt returns a shallow copy scoped to one engine attempt.
// Execution within a run is single-threaded; the copy exists so the
// canonical Execution stays clean between steps.
func (e *Execution) forAttempt(step StepID, attempt int) *Execution {
	copy := *e
	copy.StepID = step
	copy.Attempt = attempt
	return &copy
}

// NewExecution creates the execution context for one run. Global properties
// are merged first, then definition properties (definition overrides), with
// ${VAR} / ${VAR:default} values resolved from the environment. A required
// variable that is not set fails the whole run creation.
func NewExecution(ctx context.Context, def *WorkflowDefinition, globalProperties map[string]any) (*Execution, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	exec := &Execution{
		ID:         NewWorkflowID(),
		Store:      NewValueStore(),
		Definition: def,
		ctx:        ctx,
	}

	for k, v := range globalProperties {
		resolved, err := resolveEnvVar(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		exec.Store.Set("properties."+k, resolved)
	}

	if def != nil {
		for k, v := range def.Properties {
			resolved, err := resolveEnvVar(v)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", k, err)
			}
			exec.Store.Set("properties."+k, resolved)
		}
	}

	return exec, nil
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

func resolveEnvVar(value any) (any, error) {
	strValue, ok := value.(string)
	if !ok {
		return value, nil
	}

	matches := envVarPattern.FindStringSubmatch(strValue)
	if matches == nil {
		return value, nil
	}

	varName := matches[1]
	defaultPart := matches[2]

	envValue, exists := os.LookupEnv(varName)
	if exists {
		return envValue, nil
	}

	if defaultPart != "" {
		return strings.TrimPrefix(defaultPart, ":"), nil
	}

	return nil, fmt.Errorf("required environment variable not set: %s", varName)
}
