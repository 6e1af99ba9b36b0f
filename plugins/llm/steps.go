package llm

import (
	"fmt"

	"draftloop/runtime"
)

// clientFrom recovers the model client from the execution's capability
// handle.
func clientFrom(exec *runtime.Execution) (Client, bool) {
	client, ok := exec.Capability.(Client)
	return client, ok
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func nestedMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	nested, _ := m[key].(map[string]any)
	return nested
}

// GenerateStep writes a draft about the workflow input's topic. When
// re-invoked by a revision loop it receives the prior draft and the
// validator's feedback and produces an improved draft instead.
type GenerateStep struct {
	runtime.BaseStep
}

func NewGenerateStep() *GenerateStep { return &GenerateStep{} }

func (s *GenerateStep) ID() runtime.StepID { return "generate" }
func (s *GenerateStep) Name() string       { return "Generate draft" }

func (s *GenerateStep) ValidateInput(input map[string]any) error {
	topic := stringField(nestedMap(input, runtime.InputKey), "topic")
	if topic == "" {
		return runtime.NewValidationError(s.ID(), "topic", "topic must not be empty")
	}
	return nil
}

func (s *GenerateStep) ValidateOutput(output map[string]any) error {
	if stringField(output, "text") == "" {
		return runtime.NewValidationError(s.ID(), "text", "generated text must not be empty")
	}
	return nil
}

func (s *GenerateStep) Execute(exec *runtime.Execution, input map[string]any) runtime.StepResult {
	client, ok := clientFrom(exec)
	if !ok {
		return runtime.Fail("no model client available", false)
	}

	topic := stringField(nestedMap(input, runtime.InputKey), "topic")
	feedback := stringField(input, runtime.FeedbackKey)

	var req CompletionRequest
	if feedback == "" {
		req = CompletionRequest{
			System: "You are a content generator. Write clear paragraphs.",
			Prompt: fmt.Sprintf("Write a paragraph about: %s", topic),
		}
	} else {
		previous := stringField(nestedMap(input, runtime.PreviousKey), "text")
		req = CompletionRequest{
			System: "You are a content editor. Improve the text based on feedback.",
			Prompt: fmt.Sprintf("Revise this text based on the feedback:\n\nOriginal:\n%s\n\nFeedback:\n%s", previous, feedback),
		}
	}

	text, err := client.Complete(exec, req)
	if err != nil {
		return failFromModelError(err)
	}

	return runtime.Succeed(map[string]any{"text": text})
}

// CritiqueStep reviews a source step's draft and decides whether it passes
// or needs revision. The decision is parsed from a JSON model response; a
// malformed decision is a permanent failure.
type CritiqueStep struct {
	runtime.BaseStep
	source runtime.StepID
}

// NewCritiqueStep builds a critique step reading its draft from the output
// of the given source step (its dependency in the definition).
func NewCritiqueStep(source runtime.StepID) *CritiqueStep {
	return &CritiqueStep{source: source}
}

func (s *CritiqueStep) ID() runtime.StepID { return "critique" }
func (s *CritiqueStep) Name() string       { return "Critique draft" }

func (s *CritiqueStep) ValidateInput(input map[string]any) error {
	if stringField(nestedMap(input, string(s.source)), "text") == "" {
		return runtime.NewValidationError(s.ID(), string(s.source), "no draft to critique")
	}
	return nil
}

func (s *CritiqueStep) ValidateOutput(output map[string]any) error {
	if stringField(output, "critique") == "" {
		return runtime.NewValidationError(s.ID(), "critique", "critique must not be empty")
	}
	return nil
}

func (s *CritiqueStep) Execute(exec *runtime.Execution, input map[string]any) runtime.StepResult {
	client, ok := clientFrom(exec)
	if !ok {
		return runtime.Fail("no model client available", false)
	}

	draft := stringField(nestedMap(input, string(s.source)), "text")

	req := CompletionRequest{
		System: "You are a writing critic. Be helpful but thorough.",
		Prompt: fmt.Sprintf(
			"Critique this text and decide if it needs revision.\n"+
				"Respond with JSON: {\"decision\": \"pass\" or \"revise\", \"critique\": \"your critique\", \"feedback\": \"what to improve\"}\n\n"+
				"Text:\n%s", draft),
	}

	raw, err := client.Complete(exec, req)
	if err != nil {
		return failFromModelError(err)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		return runtime.Fail(err.Error(), false)
	}

	output := map[string]any{
		"critique": decision.Critique,
		"decision": decision.Verdict,
	}
	if decision.NeedsRevision() {
		return runtime.RequestRevision(output, decision.Feedback)
	}
	return runtime.Succeed(output)
}

func failFromModelError(err error) runtime.StepResult {
	if me, ok := err.(*ModelError); ok {
		return runtime.Fail(me.Error(), me.Retryable)
	}
	return runtime.Fail(err.Error(), false)
}
