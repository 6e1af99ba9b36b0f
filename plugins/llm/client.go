package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the model client configuration with declarative tags.
type Config struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	APIKey    string        `yaml:"api_key" validate:"required"`
	Model     string        `yaml:"model" default:"claude-sonnet-4-5" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" default:"60s" validate:"gte=1s"`
	MaxTokens int           `yaml:"max_tokens" default:"1024" validate:"gte=1"`
}

// CompletionRequest is one completion call.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Client is the capability handle steps reach the model through.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ModelError carries the retryable/non-retryable distinction back to the
// step contract. Rate limits, server errors, and transport failures are
// retryable; other client errors are not.
type ModelError struct {
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *ModelError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("model error (status %d): %s", e.StatusCode, e.Message)
	}
	return "model error: " + e.Message
}

// HTTPClient talks to a messages-style completion API over resty.
type HTTPClient struct {
	cfg    Config
	client *resty.Client
}

func NewClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		cfg: cfg,
		client: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetHeader("x-api-key", cfg.APIKey).
			SetHeader("anthropic-version", "2023-06-01").
			SetHeader("content-type", "application/json"),
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	body := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	}

	var out messagesResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/v1/messages")
	if err != nil {
		return "", &ModelError{Message: err.Error(), Retryable: true}
	}

	if resp.IsError() {
		msg := out.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", &ModelError{
			Message:    msg,
			StatusCode: resp.StatusCode(),
			Retryable:  resp.StatusCode() == 429 || resp.StatusCode() >= 500,
		}
	}

	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", &ModelError{Message: "response contained no text block", Retryable: false}
}
