package llm

import (
	"context"
	"strings"
	"time"

	"goa.design/clue/log"
)

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Options selects and configures the completion client.
type Options struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	// Mock forces the mock client regardless of Provider.
	Mock bool
}

// NewCompleter creates the completion client named by opts. Mock mode or the
// mock provider return a MockClient; real providers require an API key.
func NewCompleter(ctx context.Context, opts Options) (Completer, error) {
	provider := strings.ToLower(opts.Provider)
	if opts.Mock || provider == ProviderMock {
		log.Info(ctx, log.KV{K: "msg", V: "mock mode detected, using mock completion client"})
		return NewMockClient(), nil
	}

	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  opts.APIKey,
			Model:   opts.Model,
			Timeout: opts.Timeout,
		})
	default:
		if opts.APIKey == "" {
			return nil, ErrMissingCredential
		}
		return NewClient(opts.BaseURL, opts.APIKey, opts.Model, opts.Timeout), nil
	}
}
