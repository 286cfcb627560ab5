package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/robfig/cron/v3"
)

// Config represents the main Mistalic configuration
type Config struct {
	// HTTP API server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Workspace storage
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Generation defaults and provider credentials
	LLM LLMConfig `json:"llm" mapstructure:"llm"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Scheduled storage housekeeping
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds HTTP API server configuration
type ServerConfig struct {
	Host               string `json:"host" mapstructure:"host"`
	Port               int    `json:"port" mapstructure:"port"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute"` // negative disables
	ReadTimeout        int    `json:"read_timeout" mapstructure:"read_timeout"`                   // seconds
	WriteTimeout       int    `json:"write_timeout" mapstructure:"write_timeout"`                 // seconds
	ShutdownTimeout    int    `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`           // seconds
	MaxBodyBytes       int64  `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects the key-value backend holding the workspace
type StorageConfig struct {
	Backend string `json:"backend" mapstructure:"backend"` // badger, sqlite, memory
	Path    string `json:"path" mapstructure:"path"`
}

// LLMConfig holds generation defaults and provider profiles
type LLMConfig struct {
	DefaultModel string              `json:"default_model" mapstructure:"default_model"`
	SystemPrompt string              `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature  float64             `json:"temperature" mapstructure:"temperature"`
	MaxTokens    int                 `json:"max_tokens" mapstructure:"max_tokens"`
	Profiles     []agent.AuthProfile `json:"profiles" mapstructure:"profiles"`
}

// GenerationDefaults converts the LLM section to generator defaults.
func (l LLMConfig) GenerationDefaults() agent.Defaults {
	return agent.Defaults{
		Model:        l.DefaultModel,
		SystemPrompt: l.SystemPrompt,
		Temperature:  l.Temperature,
		MaxTokens:    l.MaxTokens,
	}
}

// Profile returns the profile configured for provider.
func (l LLMConfig) Profile(provider string) (agent.AuthProfile, bool) {
	for _, p := range l.Profiles {
		if p.Provider == provider {
			return p, true
		}
	}
	return agent.AuthProfile{}, false
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MaintenanceConfig schedules storage garbage collection
type MaintenanceConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // standard cron spec or @every
}

// Providers that accept a profile.
var knownProviders = []string{
	agent.ProviderMistral,
	agent.ProviderOpenAI,
	agent.ProviderAnthropic,
	agent.ProviderGemini,
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               3000,
			RateLimitPerMinute: 120,
			ReadTimeout:        15,
			WriteTimeout:       90,
			ShutdownTimeout:    30,
			MaxBodyBytes:       4 << 20,
		},
		Storage: StorageConfig{
			Backend: kvstore.BackendBadger,
		},
		LLM: LLMConfig{
			DefaultModel: agent.DefaultModel,
			SystemPrompt: agent.DefaultSystemPrompt,
			Temperature:  agent.DefaultTemperature,
			MaxTokens:    agent.DefaultMaxTokens,
			Profiles:     []agent.AuthProfile{},
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "@every 1h",
		},
	}
}

// String returns a JSON representation of the config with API keys masked
func (c *Config) String() string {
	masked := *c
	masked.LLM.Profiles = make([]agent.AuthProfile, len(c.LLM.Profiles))
	for i, p := range c.LLM.Profiles {
		if p.APIKey != "" {
			p.APIKey = "********"
		}
		masked.LLM.Profiles[i] = p
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Timeouts converts the server section's second counts to durations.
func (s ServerConfig) Timeouts() (read, write, shutdown time.Duration) {
	return time.Duration(s.ReadTimeout) * time.Second,
		time.Duration(s.WriteTimeout) * time.Second,
		time.Duration(s.ShutdownTimeout) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host is required")
	}

	switch c.Storage.Backend {
	case kvstore.BackendBadger, kvstore.BackendSQLite, kvstore.BackendMemory:
	default:
		return fmt.Errorf("invalid storage backend: %s (must be: badger, sqlite, memory)", c.Storage.Backend)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2, got %v", c.LLM.Temperature)
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("llm max_tokens must be >= 0")
	}

	seen := make(map[string]bool)
	for i, profile := range c.LLM.Profiles {
		if profile.Provider == "" {
			return fmt.Errorf("llm profile %d: provider is required", i)
		}
		if !isKnownProvider(profile.Provider) {
			return fmt.Errorf("llm profile %d: invalid provider %s (must be: mistral, openai, anthropic, gemini)", i, profile.Provider)
		}
		if profile.APIKey == "" {
			return fmt.Errorf("llm profile %s: api_key is required", profile.Provider)
		}
		if seen[profile.Provider] {
			return fmt.Errorf("llm profile %s: duplicate provider", profile.Provider)
		}
		seen[profile.Provider] = true
	}

	if c.Maintenance.Enabled {
		if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("invalid maintenance schedule %q: %w", c.Maintenance.Schedule, err)
		}
	}

	return nil
}

func isKnownProvider(provider string) bool {
	for _, p := range knownProviders {
		if p == provider {
			return true
		}
	}
	return false
}
