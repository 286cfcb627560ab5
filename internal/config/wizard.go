package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/harun/mistalic/pkg/agent"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard reading answers from in
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard starting from base
func (w *Wizard) Run(base *Config) (*Config, error) {
	fmt.Fprintln(w.out, "=== Mistalic Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		copied.LLM.Profiles = append([]agent.AuthProfile(nil), base.LLM.Profiles...)
		cfg = &copied
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "API Keys (press Enter to keep the current value):")
	for _, provider := range knownProviders {
		for {
			fmt.Fprintf(w.out, "%s API Key: ", providerTitle(provider))
			key, err := w.readLine()
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			if err := validator.ValidateAPIKey(key, provider); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			setProfileKey(cfg, provider, key)
			break
		}
	}
	if len(cfg.LLM.Profiles) == 0 {
		fmt.Fprintln(w.out, "Warning: no API key configured, generation requests will fail")
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Server:")
	for {
		fmt.Fprintf(w.out, "Port [%d]: ", cfg.Server.Port)
		answer, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if answer == "" {
			break
		}
		port, err := strconv.Atoi(answer)
		if err == nil {
			err = validator.ValidatePort(port)
		}
		if err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Server.Port = port
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Storage backend options:")
	fmt.Fprintln(w.out, "  badger - embedded key-value store (default)")
	fmt.Fprintln(w.out, "  sqlite - single database file")
	fmt.Fprintln(w.out, "  memory - nothing survives a restart")
	fmt.Fprintf(w.out, "Storage backend [%s]: ", cfg.Storage.Backend)
	backend, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if backend != "" {
		if err := validator.ValidateBackend(backend); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Storage.Backend)
		} else if backend != cfg.Storage.Backend {
			cfg.Storage.Backend = backend
			cfg.Storage.Path = ""
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintf(w.out, "Default model [%s]: ", cfg.LLM.DefaultModel)
	model, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if model != "" {
		cfg.LLM.DefaultModel = model
	}

	fmt.Fprintf(w.out, "Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// readLine treats end of input as an empty answer.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func setProfileKey(cfg *Config, provider, key string) {
	for i := range cfg.LLM.Profiles {
		if cfg.LLM.Profiles[i].Provider == provider {
			cfg.LLM.Profiles[i].APIKey = key
			return
		}
	}
	cfg.LLM.Profiles = append(cfg.LLM.Profiles, agent.AuthProfile{Provider: provider, APIKey: key})
}

func providerTitle(provider string) string {
	switch provider {
	case agent.ProviderOpenAI:
		return "OpenAI"
	case agent.ProviderAnthropic:
		return "Anthropic"
	case agent.ProviderGemini:
		return "Gemini"
	default:
		return "Mistral"
	}
}
