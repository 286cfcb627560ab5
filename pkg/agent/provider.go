package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider names.
const (
	ProviderMistral   = "mistral"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ErrProviderUnavailable is returned when no credentials exist for the
// provider a model needs.
var ErrProviderUnavailable = errors.New("provider unavailable")

// LLMProvider is an interface for LLM API providers
type LLMProvider interface {
	// Call makes an LLM API call
	Call(ctx context.Context, request LLMRequest) (*LLMResponse, error)

	// Provider returns the provider name
	Provider() string
}

// LLMRequest contains the request parameters for LLM call
type LLMRequest struct {
	Model        string
	Messages     []AgentMessage
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
}

// LLMResponse contains the response from LLM
type LLMResponse struct {
	Content string
	Usage   *TokenUsage
}

// ProviderForModel maps a model id to the provider serving it.
func ProviderForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	case strings.HasPrefix(model, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return ProviderOpenAI
	default:
		return ProviderMistral
	}
}

// ProviderFactory creates LLM providers
type ProviderFactory struct{}

// NewProvider creates a new LLM provider based on auth profile
func (f *ProviderFactory) NewProvider(profile AuthProfile) (LLMProvider, error) {
	if profile.APIKey == "" {
		return nil, fmt.Errorf("%w: no api key for %s", ErrProviderUnavailable, profile.Provider)
	}

	switch profile.Provider {
	case ProviderMistral:
		return NewMistralProvider(profile.APIKey, profile.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(profile.APIKey, profile.BaseURL), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(profile.APIKey, profile.BaseURL), nil
	case ProviderGemini:
		return NewGeminiProvider(profile.APIKey)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}
