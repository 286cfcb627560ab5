package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// EditorSettings returns the current editor settings.
func (m *Manager) EditorSettings() EditorSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateEditorSettings validates and stores settings.
func (m *Manager) UpdateEditorSettings(settings EditorSettings) (EditorSettings, error) {
	if err := settings.Validate(); err != nil {
		return EditorSettings{}, err
	}

	m.mu.Lock()
	if err := m.persistence.SaveEditorSettings(settings); err != nil {
		m.mu.Unlock()
		return EditorSettings{}, err
	}
	m.settings = settings
	m.mu.Unlock()

	m.emitter.Emit(EventPayload{Event: EventSettingsChanged, Data: settings})
	return settings, nil
}

// Theme returns the current theme.
func (m *Manager) Theme() ThemeSettings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.theme
}

// UpdateTheme validates and stores theme.
func (m *Manager) UpdateTheme(theme ThemeSettings) (ThemeSettings, error) {
	if err := theme.Validate(); err != nil {
		return ThemeSettings{}, err
	}

	m.mu.Lock()
	if err := m.persistence.SaveTheme(theme); err != nil {
		m.mu.Unlock()
		return ThemeSettings{}, err
	}
	m.theme = theme
	m.mu.Unlock()

	m.emitter.Emit(EventPayload{Event: EventThemeChanged, Data: theme})
	return theme, nil
}

// APIKeys returns the stored keys in insertion order.
func (m *Manager) APIKeys() []APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]APIKey, len(m.keys))
	copy(out, m.keys)
	return out
}

// AddAPIKey stores a new key. Provider defaults to mistral.
func (m *Manager) AddAPIKey(name, key, provider string) (APIKey, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(key) == "" {
		return APIKey{}, fmt.Errorf("%w: name and API key are required", ErrValidation)
	}
	if provider == "" {
		provider = DefaultKeyProvider
	}
	record := APIKey{
		ID:       uuid.NewString(),
		Name:     name,
		Key:      key,
		Provider: provider,
	}

	m.mu.Lock()
	next := make([]APIKey, len(m.keys), len(m.keys)+1)
	copy(next, m.keys)
	next = append(next, record)
	if err := m.persistence.SaveAPIKeys(next); err != nil {
		m.mu.Unlock()
		return APIKey{}, err
	}
	m.keys = next
	m.mu.Unlock()

	m.emitter.Emit(EventPayload{Event: EventKeysChanged, Data: record.Masked()})
	return record, nil
}

// DeleteAPIKey removes the key with id.
func (m *Manager) DeleteAPIKey(id string) error {
	m.mu.Lock()
	next := make([]APIKey, 0, len(m.keys))
	for _, k := range m.keys {
		if k.ID != id {
			next = append(next, k)
		}
	}
	if len(next) == len(m.keys) {
		m.mu.Unlock()
		return fmt.Errorf("%w: api key %s", ErrNotFound, id)
	}
	if err := m.persistence.SaveAPIKeys(next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.keys = next
	m.mu.Unlock()

	m.emitter.Emit(EventPayload{Event: EventKeysChanged, Data: map[string]string{"deleted": id}})
	return nil
}

// KeyFor returns the most recently added key for provider.
func (m *Manager) KeyFor(provider string) (APIKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.keys) - 1; i >= 0; i-- {
		if m.keys[i].Provider == provider {
			return m.keys[i], true
		}
	}
	return APIKey{}, false
}

// Env returns a copy of the stored environment variables.
func (m *Manager) Env() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.env))
	for k, v := range m.env {
		out[k] = v
	}
	return out
}

// SetEnv stores one environment variable.
func (m *Manager) SetEnv(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: variable name is required", ErrValidation)
	}
	return m.mutateEnv(func(env map[string]string) error {
		env[key] = value
		return nil
	})
}

// UnsetEnv removes one environment variable.
func (m *Manager) UnsetEnv(key string) error {
	return m.mutateEnv(func(env map[string]string) error {
		if _, ok := env[key]; !ok {
			return fmt.Errorf("%w: variable %s", ErrNotFound, key)
		}
		delete(env, key)
		return nil
	})
}

// ReplaceEnv overwrites all environment variables.
func (m *Manager) ReplaceEnv(vars map[string]string) error {
	for k := range vars {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: variable name is required", ErrValidation)
		}
	}
	return m.mutateEnv(func(env map[string]string) error {
		for k := range env {
			delete(env, k)
		}
		for k, v := range vars {
			env[k] = v
		}
		return nil
	})
}

func (m *Manager) mutateEnv(apply func(env map[string]string) error) error {
	m.mu.Lock()
	next := make(map[string]string, len(m.env)+1)
	for k, v := range m.env {
		next[k] = v
	}
	if err := apply(next); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistence.SaveEnv(next); err != nil {
		m.mu.Unlock()
		return err
	}
	m.env = next
	m.mu.Unlock()

	keys := make([]string, 0, len(next))
	for k := range next {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m.emitter.Emit(EventPayload{Event: EventEnvChanged, Data: keys})
	return nil
}
