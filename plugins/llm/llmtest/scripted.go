// Package llmtest provides a deterministic model client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"draftloop/plugins/llm"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Text string
	Err  error
}

// ScriptedClient replays a fixed sequence of responses. Calling past the
// end of the script is an error so tests notice unexpected model calls.
type ScriptedClient struct {
	mu        sync.Mutex
	index     int
	responses []Response

	// Requests records every completion request, in order.
	Requests []llm.CompletionRequest
}

func NewScriptedClient(responses ...Response) *ScriptedClient {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedClient{responses: cloned}
}

var _ llm.Client = (*ScriptedClient)(nil)

func (c *ScriptedClient) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Requests = append(c.Requests, req)

	if c.index >= len(c.responses) {
		return "", fmt.Errorf("script exhausted at call %d", c.index+1)
	}
	current := c.responses[c.index]
	c.index++
	if current.Err != nil {
		return "", current.Err
	}
	return current.Text, nil
}

// Calls returns how many completions have been requested.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}
