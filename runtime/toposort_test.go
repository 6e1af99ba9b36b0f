package runtime

import (
	"testing"
)

func indexOf(order []StepID, id StepID) int {
	for i, s := range order {
		if s == id {
			return i
		}
	}
	return -1
}

func TestTopologicalSortChain(t *testing.T) {
	steps := []StepDefinition{
		{ID: "a"},
		{ID: "b", DependsOn: []StepID{"a"}},
		{ID: "c", DependsOn: []StepID{"b"}},
	}

	order, err := TopologicalSort(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []StepID{"a", "b", "c"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d steps, got %d", len(expected), len(order))
	}
	for i, id := range expected {
		if order[i] != id {
			t.Errorf("position %d: got %s, want %s", i, order[i], id)
		}
	}
}

func TestTopologicalSortDiamond(t *testing.T) {
	steps := []StepDefinition{
		{ID: "d", DependsOn: []StepID{"b", "c"}},
		{ID: "b", DependsOn: []StepID{"a"}},
		{ID: "c", DependsOn: []StepID{"a"}},
		{ID: "a"},
	}

	order, err := TopologicalSort(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(order))
	}
	if order[0] != "a" {
		t.Errorf("expected a first, got %s", order[0])
	}
	if order[3] != "d" {
		t.Errorf("expected d last, got %s", order[3])
	}

	seen := make(map[StepID]bool)
	for _, id := range order {
		if seen[id] {
			t.Errorf("step %s appears more than once", id)
		}
		seen[id] = true
	}
}

func TestTopologicalSortDependenciesFirst(t *testing.T) {
	steps := []StepDefinition{
		{ID: "extract"},
		{ID: "transform", DependsOn: []StepID{"extract"}},
		{ID: "load", DependsOn: []StepID{"transform", "extract"}},
		{ID: "report", DependsOn: []StepID{"load"}},
	}

	order, err := TopologicalSort(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if indexOf(order, dep) >= indexOf(order, s.ID) {
				t.Errorf("dependency %s must come before %s in %v", dep, s.ID, order)
			}
		}
	}
}

func TestTopologicalSortIndependentStepsKeepDefinitionOrder(t *testing.T) {
	steps := []StepDefinition{
		{ID: "one"},
		{ID: "two"},
		{ID: "three"},
	}

	order, err := TopologicalSort(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []StepID{"one", "two", "three"}
	for i, id := range expected {
		if order[i] != id {
			t.Errorf("position %d: got %s, want %s", i, order[i], id)
		}
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	steps := []StepDefinition{
		{ID: "a", DependsOn: []StepID{"c"}},
		{ID: "b", DependsOn: []StepID{"a"}},
		{ID: "c", DependsOn: []StepID{"b"}},
	}

	_, err := TopologicalSort(steps)
	if err == nil {
		t.Fatal("expected a cycle error")
	}

	we, ok := AsWorkflowError(err)
	if !ok {
		t.Fatalf("expected WorkflowError, got %T", err)
	}
	if we.Code != CodeCircularDependency {
		t.Errorf("expected %s, got %s", CodeCircularDependency, we.Code)
	}
}

func TestTopologicalSortSelfCycle(t *testing.T) {
	steps := []StepDefinition{
		{ID: "a", DependsOn: []StepID{"a"}},
	}

	_, err := TopologicalSort(steps)
	if err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestTopologicalSortEmpty(t *testing.T) {
	order, err := TopologicalSort(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected empty order, got %v", order)
	}
}
