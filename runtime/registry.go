package runtime

import "sync"

// Registry is the lookup table of step instances keyed by StepID. It is an
// explicitly constructed, passed-in dependency so multiple engines with
// different step sets can coexist in one process. Populate at startup;
// read-only (and safe for concurrent reads) thereafter.
type Registry struct {
	mu    sync.Mutex
	steps map[StepID]Step
}

func NewRegistry() *Registry {
	return &Registry{steps: make(map[StepID]Step)}
}

// Register adds a step instance. Registering the same id twice is an error.
func (r *Registry) Register(step Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.steps[step.ID()]; exists {
		return NewDuplicateStepID(step.ID())
	}
	r.steps[step.ID()] = step
	return nil
}

// Get returns the step registered under id.
func (r *Registry) Get(id StepID) (Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.steps[id]
	if !ok {
		return nil, NewStepNotFound(id)
	}
	return step, nil
}

// IDs returns the registered step ids, for diagnostics.
func (r *Registry) IDs() []StepID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]StepID, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	return ids
}
