package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLoader returns a loader that sees only the given provider keys.
func newTestLoader(path string, env map[string]string) *Loader {
	l := NewLoader(path)
	l.getenv = func(key string) string { return env[key] }
	return l
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.configPath)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		cfg, err := newTestLoader(configPath, nil).Load()

		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "mistral-small-latest", cfg.LLM.DefaultModel)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"server": {"port": 4100},
			"storage": {"backend": "sqlite"},
			"llm": {
				"default_model": "mistral-large-latest",
				"profiles": [{"provider": "mistral", "api_key": "file-key", "base_url": "http://localhost:9999/v1"}]
			},
			"data_dir": "` + filepath.ToSlash(tmpDir) + `"
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := newTestLoader(configPath, nil).Load()

		require.NoError(t, err)
		assert.Equal(t, 4100, cfg.Server.Port)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset keys keep defaults")
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, filepath.Join(tmpDir, "mistalic.db"), cfg.Storage.Path)
		assert.Equal(t, "mistral-large-latest", cfg.LLM.DefaultModel)
		assert.Equal(t, 0.7, cfg.LLM.Temperature)
		assert.Equal(t, []agent.AuthProfile{{Provider: "mistral", APIKey: "file-key", BaseURL: "http://localhost:9999/v1"}}, cfg.LLM.Profiles)
	})

	t.Run("set default paths", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"data_dir": "`+filepath.ToSlash(tmpDir)+`"}`), 0644))

		cfg, err := newTestLoader(configPath, nil).Load()

		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tmpDir, "mistalic.log"), cfg.Logging.File)
		assert.Equal(t, filepath.Join(tmpDir, "data"), cfg.Storage.Path)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0644))

		_, err := newTestLoader(configPath, nil).Load()
		assert.Error(t, err)
	})

	t.Run("provider key variables fill missing profiles", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		testConfig := `{"llm": {"profiles": [{"provider": "openai", "api_key": "sk-from-file"}, {"provider": "anthropic", "base_url": "http://proxy"}]}}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := newTestLoader(configPath, map[string]string{
			"MISTRAL_API_KEY":   "m-env",
			"OPENAI_API_KEY":    "sk-env",
			"ANTHROPIC_API_KEY": "sk-ant-env",
		}).Load()
		require.NoError(t, err)

		openai, _ := cfg.LLM.Profile("openai")
		assert.Equal(t, "sk-from-file", openai.APIKey, "file keys win over the environment")

		anthropic, _ := cfg.LLM.Profile("anthropic")
		assert.Equal(t, "sk-ant-env", anthropic.APIKey)
		assert.Equal(t, "http://proxy", anthropic.BaseURL)

		mistral, ok := cfg.LLM.Profile("mistral")
		require.True(t, ok)
		assert.Equal(t, "m-env", mistral.APIKey)

		_, ok = cfg.LLM.Profile("gemini")
		assert.False(t, ok)
	})

	t.Run("prefixed environment overrides", func(t *testing.T) {
		t.Setenv("MISTALIC_SERVER_PORT", "5050")
		t.Setenv("MISTALIC_LOGGING_LEVEL", "debug")

		cfg, err := newTestLoader(filepath.Join(t.TempDir(), "none.json"), nil).Load()
		require.NoError(t, err)
		assert.Equal(t, 5050, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.json")
	loader := newTestLoader(configPath, nil)

	cfg := DefaultConfig()
	cfg.Server.Port = 8123
	cfg.Storage.Backend = "memory"
	cfg.LLM.Profiles = []agent.AuthProfile{{Provider: "gemini", APIKey: "AIza-key"}}
	cfg.Logging.Level = "warn"
	cfg.DataDir = tmpDir

	require.NoError(t, loader.Save(cfg))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.Server.Port)
	assert.Equal(t, "memory", loaded.Storage.Backend)
	assert.Equal(t, "warn", loaded.Logging.Level)
	assert.Equal(t, cfg.LLM.Profiles, loaded.LLM.Profiles)
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"maintenance": {"schedule": "0 3 * * *"}}`), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", cfg.Maintenance.Schedule)
	assert.True(t, cfg.Maintenance.Enabled)
}
