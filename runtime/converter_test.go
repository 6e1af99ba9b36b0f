package runtime

import (
	"testing"
	"time"
)

type draftInput struct {
	Topic    string        `json:"topic"`
	MaxWords int           `json:"max_words"`
	Deadline time.Duration `json:"deadline"`
}

type draftOutput struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
	Hidden  string   `json:"-"`
}

func TestDecodeInput(t *testing.T) {
	input := map[string]any{
		"topic":     "go",
		"max_words": 200,
		"deadline":  "5m",
	}

	decoded, err := DecodeInput[draftInput](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decoded.Topic != "go" {
		t.Errorf("got topic %q, want go", decoded.Topic)
	}
	if decoded.MaxWords != 200 {
		t.Errorf("got max_words %d, want 200", decoded.MaxWords)
	}
	if decoded.Deadline != 5*time.Minute {
		t.Errorf("expected duration string to parse, got %v", decoded.Deadline)
	}
}

func TestDecodeInputWeakTyping(t *testing.T) {
	// YAML-sourced inputs often carry numbers as strings.
	input := map[string]any{
		"topic":     "go",
		"max_words": "300",
	}

	decoded, err := DecodeInput[draftInput](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.MaxWords != 300 {
		t.Errorf("got max_words %d, want 300", decoded.MaxWords)
	}
}

func TestDecodeInputIgnoresUnknownKeys(t *testing.T) {
	input := map[string]any{
		"topic":   "go",
		"unknown": "ignored",
	}

	decoded, err := DecodeInput[draftInput](input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.Topic != "go" {
		t.Errorf("got topic %q, want go", decoded.Topic)
	}
}

func TestEncodeOutput(t *testing.T) {
	out := draftOutput{
		Text:    "a draft",
		Sources: []string{"one", "two"},
		Hidden:  "secret",
	}

	m, err := EncodeOutput(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m["text"] != "a draft" {
		t.Errorf("got %v, want a draft", m["text"])
	}
	sources, ok := m["sources"].([]any)
	if !ok || len(sources) != 2 {
		t.Errorf("expected 2 sources, got %v", m["sources"])
	}
	if _, ok := m["Hidden"]; ok {
		t.Error("json-excluded fields must not be encoded")
	}
	if _, ok := m["-"]; ok {
		t.Error("json-excluded fields must not be encoded")
	}
}

func TestEncodeOutputOmitsEmpty(t *testing.T) {
	m, err := EncodeOutput(draftOutput{Text: "a draft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m["sources"]; ok {
		t.Error("empty omitempty fields must be dropped")
	}
}
