package runtime

import (
	"testing"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	step := &fakeStep{id: "work", execute: func(*Execution, map[string]any) StepResult {
		return Succeed(nil)
	}}

	if err := r.Register(step); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := r.Get("work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Step(step) {
		t.Error("expected the registered instance back")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	step := &fakeStep{id: "work"}

	if err := r.Register(step); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := r.Register(&fakeStep{id: "work"})
	we, ok := AsWorkflowError(err)
	if !ok {
		t.Fatalf("expected WorkflowError, got %T", err)
	}
	if we.Code != CodeDuplicateStepID {
		t.Errorf("got %s, want %s", we.Code, CodeDuplicateStepID)
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("ghost")
	we, ok := AsWorkflowError(err)
	if !ok {
		t.Fatalf("expected WorkflowError, got %T", err)
	}
	if we.Code != CodeStepNotFound {
		t.Errorf("got %s, want %s", we.Code, CodeStepNotFound)
	}
}
