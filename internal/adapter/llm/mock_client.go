package llm

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// MockClient is a canned Completer used in mock mode and in tests.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete returns a canned response. The reply describes the request by size
// only so that no request text reaches agent-suggestion matching.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.generateMockResponse(req)
	prompt := (len(req.SystemPrompt) + len(req.UserMessage)) / 4
	return &CompletionResult{
		Content: content,
		Model:   "mock",
		Usage: Usage{
			PromptTokens:     prompt,
			CompletionTokens: len(content) / 4,
			TotalTokens:      prompt + len(content)/4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *CompletionRequest) string {
	if req.UserMessage == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received a %d-character message under a %d-character system prompt. This is a mock response.",
		utf8.RuneCountInString(req.UserMessage), utf8.RuneCountInString(req.SystemPrompt))
}
