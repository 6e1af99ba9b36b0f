package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict values a critique may return.
const (
	VerdictPass   = "pass"
	VerdictRevise = "revise"
)

// CritiqueDecision is the parsed decision from a critique response.
type CritiqueDecision struct {
	Verdict  string `json:"decision"`
	Critique string `json:"critique"`
	Feedback string `json:"feedback,omitempty"`
}

func (d CritiqueDecision) IsPass() bool        { return d.Verdict == VerdictPass }
func (d CritiqueDecision) NeedsRevision() bool { return d.Verdict == VerdictRevise }

// ParseDecision parses the critique model response, which must be a JSON
// object of the form {"decision": "pass"|"revise", "critique": "...",
// "feedback": "..."}. A fenced code block wrapper is tolerated.
func ParseDecision(raw string) (CritiqueDecision, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var decision CritiqueDecision
	if err := json.Unmarshal([]byte(cleaned), &decision); err != nil {
		return CritiqueDecision{}, fmt.Errorf("failed to parse critique JSON: %w", err)
	}

	if decision.Critique == "" {
		return CritiqueDecision{}, fmt.Errorf("missing critique field")
	}

	switch decision.Verdict {
	case VerdictPass:
	case VerdictRevise:
		if decision.Feedback == "" {
			return CritiqueDecision{}, fmt.Errorf("missing feedback for revise decision")
		}
	default:
		return CritiqueDecision{}, fmt.Errorf("invalid decision value: %q", decision.Verdict)
	}

	return decision, nil
}
