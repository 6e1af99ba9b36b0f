package runtime

// StepDefinition declares one step's place in a workflow: what must
// complete before it, which step's decision can send it back for rework,
// and an open configuration bag passed through to the step instance.
type StepDefinition struct {
	ID             StepID         `yaml:"id" json:"id"`
	DependsOn      []StepID       `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
	RevisionSource StepID         `yaml:"revision_source,omitempty" json:"revision_source,omitempty"`
	Config         map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// TransitionKind tags the transition variants.
type TransitionKind string

const (
	// TransitionSequential is an ordering hint only, not an extra dependency.
	TransitionSequential TransitionKind = "sequential"
	// TransitionConditional gates To on a predicate over From's output.
	TransitionConditional TransitionKind = "conditional"
	// TransitionRevisionLoop declares that Validator's decision governs
	// whether Reviser re-executes, bounded by MaxIterations.
	TransitionRevisionLoop TransitionKind = "revision_loop"
)

type Transition struct {
	Kind TransitionKind `yaml:"kind" json:"kind"`

	From StepID `yaml:"from,omitempty" json:"from,omitempty"`
	To   StepID `yaml:"to,omitempty" json:"to,omitempty"`

	// Predicate is an expression evaluated against From's output
	// (conditional transitions only).
	Predicate string `yaml:"predicate,omitempty" json:"predicate,omitempty"`

	Reviser   StepID `yaml:"reviser,omitempty" json:"reviser,omitempty"`
	Validator StepID `yaml:"validator,omitempty" json:"validator,omitempty"`

	// MaxIterations bounds the revision loop. Zero defers to the reviser
	// step's MaxRevisions.
	MaxIterations int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`
}

// WorkflowDefinition is the declarative, serializable description of a
// workflow: its steps, their dependencies, and transition rules.
// Constructed once, validated once, then read-only; a validated definition
// may be shared by many concurrent runs.
type WorkflowDefinition struct {
	ID          string           `yaml:"id" json:"id"`
	Name        string           `yaml:"name" json:"name"`
	Steps       []StepDefinition `yaml:"steps" json:"steps"`
	Transitions []Transition     `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	Properties  map[string]any   `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// stepIndex maps step ids to their definitions. Callers must have passed
// the duplicate scan first.
func (d *WorkflowDefinition) stepIndex() map[StepID]StepDefinition {
	index := make(map[StepID]StepDefinition, len(d.Steps))
	for _, s := range d.Steps {
		index[s.ID] = s
	}
	return index
}

// Step returns the definition of one step by id.
func (d *WorkflowDefinition) Step(id StepID) (StepDefinition, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return StepDefinition{}, false
}

// RevisionLoops returns the revision-loop transitions in declaration order.
func (d *WorkflowDefinition) RevisionLoops() []Transition {
	var loops []Transition
	for _, t := range d.Transitions {
		if t.Kind == TransitionRevisionLoop {
			loops = append(loops, t)
		}
	}
	return loops
}

// Validate performs the structural checks, in order: duplicate ids,
// dependency references, transition references, cycle detection. The first
// failing check wins; a definition that fails any check is never accepted
// into the orchestrator.
func (d *WorkflowDefinition) Validate() error {
	seen := make(map[StepID]struct{}, len(d.Steps))
	for _, s := range d.Steps {
		if _, dup := seen[s.ID]; dup {
			return NewDuplicateStepID(s.ID)
		}
		seen[s.ID] = struct{}{}
	}

	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := seen[dep]; !ok {
				return NewInvalidDependency(s.ID, dep)
			}
		}
		if s.RevisionSource != "" {
			if _, ok := seen[s.RevisionSource]; !ok {
				return NewInvalidDependency(s.ID, s.RevisionSource)
			}
		}
	}

	if err := d.validateTransitions(seen); err != nil {
		return err
	}

	return d.detectCycle()
}

func (d *WorkflowDefinition) validateTransitions(steps map[StepID]struct{}) error {
	exists := func(id StepID) bool {
		_, ok := steps[id]
		return ok
	}

	for _, t := range d.Transitions {
		switch t.Kind {
		case TransitionSequential:
			if !exists(t.From) || !exists(t.To) {
				return NewInvalidTransition("sequential transition references unknown step")
			}
		case TransitionConditional:
			if !exists(t.From) || !exists(t.To) {
				return NewInvalidTransition("conditional transition references unknown step")
			}
			if t.Predicate == "" {
				return NewInvalidTransition("conditional transition requires a predicate")
			}
		case TransitionRevisionLoop:
			if !exists(t.Reviser) || !exists(t.Validator) {
				return NewInvalidTransition("revision loop references unknown step")
			}
			if t.MaxIterations < 0 {
				return NewInvalidTransition("revision loop max_iterations must not be negative")
			}
		default:
			return NewInvalidTransition("unknown transition kind: " + string(t.Kind))
		}
	}
	return nil
}

// detectCycle runs a depth-first traversal over the dependency relation,
// keeping a "currently on stack" set. Revisiting a node on the stack means
// a cycle.
func (d *WorkflowDefinition) detectCycle() error {
	index := d.stepIndex()
	visited := make(map[StepID]bool, len(d.Steps))
	onStack := make(map[StepID]bool, len(d.Steps))

	var visit func(id StepID) error
	visit = func(id StepID) error {
		visited[id] = true
		onStack[id] = true

		for _, dep := range index[id].DependsOn {
			if onStack[dep] {
				return NewCircularDependency(dep)
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		onStack[id] = false
		return nil
	}

	for _, s := range d.Steps {
		if !visited[s.ID] {
			if err := visit(s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
