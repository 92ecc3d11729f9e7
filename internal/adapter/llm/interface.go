// Package llm provides the completion clients agents are invoked through.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer produces one completion for a system prompt and a user message.
type Completer interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
}

// CompletionRequest is a single-turn completion request.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserMessage  string
	MaxTokens    int
}

// CompletionResult is the generated text and its token usage.
type CompletionResult struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrMissingCredential is returned when a real provider has no API key.
var ErrMissingCredential = errors.New("completion provider credential is not configured")

// APIError is a non-success answer from a completion provider.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("LLM API error [%d]: %s (type: %s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("LLM API error [%d]: %s", e.StatusCode, e.Message)
}

// Ensure the clients implement Completer.
var (
	_ Completer = (*Client)(nil)
	_ Completer = (*AnthropicClient)(nil)
	_ Completer = (*MockClient)(nil)
)
