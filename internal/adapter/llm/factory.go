package llm

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "STUDYCLUB_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// Provider names accepted by NewLLMClient.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Options configures the client built by NewLLMClient.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// NewLLMClient creates an LLM client for the configured provider.
// If STUDYCLUB_MODE=MOCK, returns a MockClient regardless of provider.
func NewLLMClient(opts Options) (LLMClient, error) {
	if os.Getenv(EnvMode) == ModeMock {
		slog.Info("STUDYCLUB_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch opts.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(opts.APIKey, opts.BaseURL, opts.Model, opts.Timeout), nil
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey, opts.Model, opts.Timeout), nil
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
