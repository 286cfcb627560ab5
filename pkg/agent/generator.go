package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/mistalic/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Defaults are the generation parameters used when a request omits them.
type Defaults struct {
	Model        string  `json:"model" mapstructure:"default_model"`
	SystemPrompt string  `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature  float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// DefaultGenerationDefaults returns the stock generation parameters.
func DefaultGenerationDefaults() Defaults {
	return Defaults{
		Model:        DefaultModel,
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  DefaultTemperature,
		MaxTokens:    DefaultMaxTokens,
	}
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	Profiles  []AuthProfile
	Providers []LLMProvider // ready-made providers, take precedence over Profiles
	Defaults  Defaults
	Logger    zerolog.Logger

	// KeyLookup supplies an API key for a provider that has no profile.
	KeyLookup func(provider string) string
}

// GenerateRequest is a single prompt to complete.
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// GenerateResult is the completion of a GenerateRequest.
type GenerateResult struct {
	Text     string      `json:"text"`
	Model    string      `json:"model"`
	Provider string      `json:"provider"`
	Usage    *TokenUsage `json:"usage,omitempty"`
}

// Generator forwards prompts to the provider serving the requested model.
// Calls are made once, with the caller's context and no retry.
type Generator struct {
	factory   ProviderFactory
	keyLookup func(provider string) string
	logger    zerolog.Logger

	mu        sync.RWMutex
	defaults  Defaults
	profiles  map[string]AuthProfile
	providers map[string]LLMProvider
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	g := &Generator{
		keyLookup: cfg.KeyLookup,
		logger:    cfg.Logger.With().Str("component", "generator").Logger(),
		profiles:  make(map[string]AuthProfile),
		providers: make(map[string]LLMProvider),
	}
	g.SetDefaults(cfg.Defaults)
	for _, profile := range cfg.Profiles {
		g.profiles[profile.Provider] = profile
	}
	for _, provider := range cfg.Providers {
		g.providers[provider.Provider()] = provider
	}
	return g
}

// SetDefaults replaces the generation defaults. Zero fields fall back to the
// stock values.
func (g *Generator) SetDefaults(d Defaults) {
	stock := DefaultGenerationDefaults()
	if d.Model == "" {
		d.Model = stock.Model
	}
	if d.SystemPrompt == "" {
		d.SystemPrompt = stock.SystemPrompt
	}
	if d.Temperature <= 0 {
		d.Temperature = stock.Temperature
	}
	if d.MaxTokens <= 0 {
		d.MaxTokens = stock.MaxTokens
	}

	g.mu.Lock()
	g.defaults = d
	g.mu.Unlock()
}

// Defaults returns the current generation defaults.
func (g *Generator) Defaults() Defaults {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.defaults
}

// Generate completes req.Prompt.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (result *GenerateResult, err error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: Prompt is required", ErrValidation)
	}

	defaults := g.Defaults()
	model := req.Model
	if model == "" {
		model = defaults.Model
	}
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaults.SystemPrompt
	}

	ctx, span := tracing.StartSpan(ctx, "agent.generate",
		attribute.String("llm.model", model),
		attribute.String("llm.provider", ProviderForModel(model)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	provider, err := g.providerFor(model)
	if err != nil {
		return nil, err
	}

	logger := tracing.Logger(ctx, g.logger)
	start := time.Now()
	resp, err := provider.Call(ctx, LLMRequest{
		Model:        model,
		Messages:     []AgentMessage{{Role: "user", Content: req.Prompt}},
		Temperature:  defaults.Temperature,
		MaxTokens:    defaults.MaxTokens,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("provider", provider.Provider()).
			Str("model", model).
			Dur("duration", time.Since(start)).
			Msg("Generation failed")
		return nil, fmt.Errorf("%s generation failed: %w", provider.Provider(), err)
	}

	logger.Info().
		Str("provider", provider.Provider()).
		Str("model", model).
		Dur("duration", time.Since(start)).
		Msg("Generation completed")

	return &GenerateResult{
		Text:     resp.Content,
		Model:    model,
		Provider: provider.Provider(),
		Usage:    resp.Usage,
	}, nil
}

func (g *Generator) providerFor(model string) (LLMProvider, error) {
	name := ProviderForModel(model)

	g.mu.RLock()
	provider, ok := g.providers[name]
	profile, hasProfile := g.profiles[name]
	g.mu.RUnlock()
	if ok {
		return provider, nil
	}

	fromProfile := hasProfile && profile.APIKey != ""
	if !fromProfile {
		profile = AuthProfile{Provider: name, BaseURL: profile.BaseURL}
		if g.keyLookup != nil {
			profile.APIKey = g.keyLookup(name)
		}
	}

	provider, err := g.factory.NewProvider(profile)
	if err != nil {
		return nil, err
	}

	// Providers built from KeyLookup keys are not cached.
	if fromProfile {
		g.mu.Lock()
		g.providers[name] = provider
		g.mu.Unlock()
	}
	return provider, nil
}

// SetProfiles replaces the provider credentials and drops cached providers.
func (g *Generator) SetProfiles(profiles []AuthProfile) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.profiles = make(map[string]AuthProfile, len(profiles))
	for _, profile := range profiles {
		g.profiles[profile.Provider] = profile
	}
	g.providers = make(map[string]LLMProvider)
}
