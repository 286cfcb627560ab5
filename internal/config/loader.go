package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MISTALIC_SERVER_PORT.
const EnvPrefix = "MISTALIC"

// providerKeyEnv maps a provider to the conventional variable holding its key.
var providerKeyEnv = map[string]string{
	agent.ProviderMistral:   "MISTRAL_API_KEY",
	agent.ProviderOpenAI:    "OPENAI_API_KEY",
	agent.ProviderAnthropic: "ANTHROPIC_API_KEY",
	agent.ProviderGemini:    "GEMINI_API_KEY",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	getenv     func(string) string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		getenv:     os.Getenv,
	}
}

// Load loads the configuration from file. A missing file yields the
// defaults, still subject to environment overrides.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.path()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	// MISTALIC_SERVER_PORT overrides server.port
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	l.applyProviderEnv(cfg)

	if err := ResolvePaths(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyProviderEnv adds a profile for every provider whose key variable is
// set and which has no profile in the file.
func (l *Loader) applyProviderEnv(cfg *Config) {
	for _, provider := range knownProviders {
		key := l.getenv(providerKeyEnv[provider])
		if key == "" {
			continue
		}
		if p, ok := cfg.LLM.Profile(provider); ok && p.APIKey != "" {
			continue
		}
		replaced := false
		for i := range cfg.LLM.Profiles {
			if cfg.LLM.Profiles[i].Provider == provider {
				cfg.LLM.Profiles[i].APIKey = key
				replaced = true
			}
		}
		if !replaced {
			cfg.LLM.Profiles = append(cfg.LLM.Profiles, agent.AuthProfile{Provider: provider, APIKey: key})
		}
	}
}

// setDefaults registers every scalar default so AutomaticEnv can override
// keys absent from the file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.rate_limit_per_minute", cfg.Server.RateLimitPerMinute)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.max_body_bytes", cfg.Server.MaxBodyBytes)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("llm.default_model", cfg.LLM.DefaultModel)
	v.SetDefault("llm.system_prompt", cfg.LLM.SystemPrompt)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("logging.compress", cfg.Logging.Compress)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)
	v.SetDefault("maintenance.enabled", cfg.Maintenance.Enabled)
	v.SetDefault("maintenance.schedule", cfg.Maintenance.Schedule)
	v.SetDefault("data_dir", cfg.DataDir)
}

// ResolvePaths fills the data directory, log file and storage path.
func ResolvePaths(cfg *Config) error {
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".mistalic")
	}

	if cfg.Logging.File == "" {
		cfg.Logging.File = filepath.Join(cfg.DataDir, "mistalic.log")
	}

	if cfg.Storage.Path == "" {
		switch cfg.Storage.Backend {
		case kvstore.BackendSQLite:
			cfg.Storage.Path = filepath.Join(cfg.DataDir, "mistalic.db")
		case kvstore.BackendBadger, "":
			cfg.Storage.Path = filepath.Join(cfg.DataDir, "data")
		}
	}
	return nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.path()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.Set("server", cfg.Server)
	v.Set("storage", cfg.Storage)
	v.Set("llm", cfg.LLM)
	v.Set("logging", cfg.Logging)
	v.Set("maintenance", cfg.Maintenance)
	v.Set("data_dir", cfg.DataDir)

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			if err := v.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
		} else {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	// The file holds API keys.
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}
	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.path()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) path() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mistalic", "mistalic.json"), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
