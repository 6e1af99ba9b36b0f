package runtime

import (
	"testing"
)

func TestValidateAcceptsDiamond(t *testing.T) {
	def := &WorkflowDefinition{
		ID: "diamond",
		Steps: []StepDefinition{
			{ID: "a"},
			{ID: "b", DependsOn: []StepID{"a"}},
			{ID: "c", DependsOn: []StepID{"a"}},
			{ID: "d", DependsOn: []StepID{"b", "c"}},
		},
	}

	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		def  WorkflowDefinition
		code ErrorCode
	}{
		{
			name: "duplicate step id",
			def: WorkflowDefinition{
				ID:    "dup",
				Steps: []StepDefinition{{ID: "a"}, {ID: "a"}},
			},
			code: CodeDuplicateStepID,
		},
		{
			name: "dangling dependency",
			def: WorkflowDefinition{
				ID:    "dangling",
				Steps: []StepDefinition{{ID: "a", DependsOn: []StepID{"ghost"}}},
			},
			code: CodeInvalidDependency,
		},
		{
			name: "dangling revision source",
			def: WorkflowDefinition{
				ID:    "revsrc",
				Steps: []StepDefinition{{ID: "a", RevisionSource: "ghost"}},
			},
			code: CodeInvalidDependency,
		},
		{
			name: "dependency cycle",
			def: WorkflowDefinition{
				ID: "cycle",
				Steps: []StepDefinition{
					{ID: "a", DependsOn: []StepID{"b"}},
					{ID: "b", DependsOn: []StepID{"a"}},
				},
			},
			code: CodeCircularDependency,
		},
		{
			name: "sequential transition references unknown step",
			def: WorkflowDefinition{
				ID:    "seq",
				Steps: []StepDefinition{{ID: "a"}},
				Transitions: []Transition{
					{Kind: TransitionSequential, From: "a", To: "ghost"},
				},
			},
			code: CodeInvalidTransition,
		},
		{
			name: "conditional transition without predicate",
			def: WorkflowDefinition{
				ID:    "cond",
				Steps: []StepDefinition{{ID: "a"}, {ID: "b"}},
				Transitions: []Transition{
					{Kind: TransitionConditional, From: "a", To: "b"},
				},
			},
			code: CodeInvalidTransition,
		},
		{
			name: "revision loop with unknown validator",
			def: WorkflowDefinition{
				ID:    "loop",
				Steps: []StepDefinition{{ID: "a"}},
				Transitions: []Transition{
					{Kind: TransitionRevisionLoop, Reviser: "a", Validator: "ghost", MaxIterations: 3},
				},
			},
			code: CodeInvalidTransition,
		},
		{
			name: "revision loop with negative iterations",
			def: WorkflowDefinition{
				ID:    "loop",
				Steps: []StepDefinition{{ID: "a"}, {ID: "b"}},
				Transitions: []Transition{
					{Kind: TransitionRevisionLoop, Reviser: "a", Validator: "b", MaxIterations: -1},
				},
			},
			code: CodeInvalidTransition,
		},
		{
			name: "unknown transition kind",
			def: WorkflowDefinition{
				ID:    "kind",
				Steps: []StepDefinition{{ID: "a"}, {ID: "b"}},
				Transitions: []Transition{
					{Kind: "teleport", From: "a", To: "b"},
				},
			},
			code: CodeInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}

			we, ok := AsWorkflowError(err)
			if !ok {
				t.Fatalf("expected WorkflowError, got %T", err)
			}
			if we.Code != tt.code {
				t.Errorf("got %s, want %s", we.Code, tt.code)
			}
		})
	}
}

func TestValidateAcceptsRevisionLoopWithoutIterations(t *testing.T) {
	// Omitted max_iterations is valid; the reviser step's MaxRevisions
	// supplies the bound at run time.
	def := &WorkflowDefinition{
		ID:    "defaulted",
		Steps: []StepDefinition{{ID: "a"}, {ID: "b"}},
		Transitions: []Transition{
			{Kind: TransitionRevisionLoop, Reviser: "a", Validator: "b"},
		},
	}

	if err := def.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateDuplicateWinsOverDangling(t *testing.T) {
	// Duplicate scan runs first; a definition that is broken both ways
	// reports the duplicate.
	def := &WorkflowDefinition{
		ID: "both",
		Steps: []StepDefinition{
			{ID: "a", DependsOn: []StepID{"ghost"}},
			{ID: "a"},
		},
	}

	we, _ := AsWorkflowError(def.Validate())
	if we.Code != CodeDuplicateStepID {
		t.Errorf("got %s, want %s", we.Code, CodeDuplicateStepID)
	}
}

func TestRevisionLoops(t *testing.T) {
	def := &WorkflowDefinition{
		ID:    "loops",
		Steps: []StepDefinition{{ID: "a"}, {ID: "b"}},
		Transitions: []Transition{
			{Kind: TransitionSequential, From: "a", To: "b"},
			{Kind: TransitionRevisionLoop, Reviser: "a", Validator: "b", MaxIterations: 2},
		},
	}

	loops := def.RevisionLoops()
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}
	if loops[0].Reviser != "a" || loops[0].Validator != "b" {
		t.Errorf("unexpected loop %+v", loops[0])
	}
}

func TestStepLookup(t *testing.T) {
	def := &WorkflowDefinition{
		ID:    "lookup",
		Steps: []StepDefinition{{ID: "a", Config: map[string]any{"k": "v"}}},
	}

	s, ok := def.Step("a")
	if !ok {
		t.Fatal("expected step a to exist")
	}
	if s.Config["k"] != "v" {
		t.Errorf("expected config to survive lookup, got %v", s.Config)
	}

	if _, ok := def.Step("ghost"); ok {
		t.Error("expected lookup miss for unknown step")
	}
}
