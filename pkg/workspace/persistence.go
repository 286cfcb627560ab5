package workspace

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/rs/zerolog"
)

// Storage keys. The version segment changes whenever a blob's layout does.
const (
	KeyFiles          = "mistalic:v1:files"
	KeyEditorSettings = "mistalic:v1:editor-settings"
	KeyTheme          = "mistalic:v1:theme"
	KeyAPIKeys        = "mistalic:v1:api-keys"
	KeyEnv            = "mistalic:v1:env"
)

// Persistence reads and writes workspace blobs to a key-value store. Missing
// or corrupt values fall back to defaults; only backend failures are errors.
type Persistence struct {
	store  kvstore.Store
	logger zerolog.Logger
}

// NewPersistence creates a persistence adapter over store.
func NewPersistence(store kvstore.Store, logger zerolog.Logger) *Persistence {
	return &Persistence{
		store:  store,
		logger: logger.With().Str("component", "workspace-persistence").Logger(),
	}
}

type loadState int

const (
	stateMissing loadState = iota
	stateCorrupt
	stateLoaded
)

// loadJSON decodes the value under key into target.
func (p *Persistence) loadJSON(key string, target interface{}) (loadState, error) {
	data, err := p.store.Get(key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return stateMissing, nil
	}
	if err != nil {
		return stateMissing, fmt.Errorf("failed to read %s: %w", key, err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		p.logger.Warn().
			Err(err).
			Str("key", key).
			Int("bytes", len(data)).
			Msg("Stored value is corrupt, using defaults")
		return stateCorrupt, nil
	}
	return stateLoaded, nil
}

func (p *Persistence) saveJSON(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := p.store.Set(key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// LoadFiles returns the stored file list, or the default seed when nothing
// usable is stored. A missing list is initialised with the seed.
func (p *Persistence) LoadFiles() ([]FileRecord, error) {
	var files []FileRecord
	state, err := p.loadJSON(KeyFiles, &files)
	if err != nil {
		return nil, err
	}

	switch state {
	case stateMissing:
		seed := []FileRecord{DefaultFile()}
		if err := p.SaveFiles(seed); err != nil {
			return nil, err
		}
		return seed, nil
	case stateCorrupt:
		return []FileRecord{DefaultFile()}, nil
	}

	if reason := checkFiles(files); reason != "" {
		p.logger.Warn().
			Str("key", KeyFiles).
			Str("reason", reason).
			Msg("Stored file list is unusable, using default seed")
		return []FileRecord{DefaultFile()}, nil
	}
	return files, nil
}

// checkFiles returns a reason when a decoded file list breaks the workspace
// invariants.
func checkFiles(files []FileRecord) string {
	if len(files) == 0 {
		return "empty file list"
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.Name == "" {
			return "file without a name"
		}
		if f.Path != PathFor(f.Name) {
			return fmt.Sprintf("path %q does not match name %q", f.Path, f.Name)
		}
		if _, dup := seen[f.Path]; dup {
			return fmt.Sprintf("duplicate path %q", f.Path)
		}
		seen[f.Path] = struct{}{}
	}
	return ""
}

// SaveFiles overwrites the stored file list.
func (p *Persistence) SaveFiles(files []FileRecord) error {
	if files == nil {
		files = []FileRecord{}
	}
	return p.saveJSON(KeyFiles, files)
}

// LoadEditorSettings returns stored settings merged over the defaults.
func (p *Persistence) LoadEditorSettings() (EditorSettings, error) {
	settings := DefaultEditorSettings()
	state, err := p.loadJSON(KeyEditorSettings, &settings)
	if err != nil {
		return DefaultEditorSettings(), err
	}
	if state != stateLoaded {
		return DefaultEditorSettings(), nil
	}
	if err := settings.Validate(); err != nil {
		p.logger.Warn().Err(err).Str("key", KeyEditorSettings).Msg("Stored editor settings are invalid, using defaults")
		return DefaultEditorSettings(), nil
	}
	return settings, nil
}

// SaveEditorSettings overwrites the stored editor settings.
func (p *Persistence) SaveEditorSettings(settings EditorSettings) error {
	return p.saveJSON(KeyEditorSettings, settings)
}

// LoadTheme returns the stored theme merged over the default.
func (p *Persistence) LoadTheme() (ThemeSettings, error) {
	theme := DefaultTheme()
	state, err := p.loadJSON(KeyTheme, &theme)
	if err != nil {
		return DefaultTheme(), err
	}
	if state != stateLoaded {
		return DefaultTheme(), nil
	}
	if err := theme.Validate(); err != nil {
		p.logger.Warn().Err(err).Str("key", KeyTheme).Msg("Stored theme is invalid, using default")
		return DefaultTheme(), nil
	}
	return theme, nil
}

// SaveTheme overwrites the stored theme.
func (p *Persistence) SaveTheme(theme ThemeSettings) error {
	return p.saveJSON(KeyTheme, theme)
}

// LoadAPIKeys returns the stored API keys, or none.
func (p *Persistence) LoadAPIKeys() ([]APIKey, error) {
	var keys []APIKey
	state, err := p.loadJSON(KeyAPIKeys, &keys)
	if err != nil || state != stateLoaded || keys == nil {
		return []APIKey{}, err
	}
	return keys, nil
}

// SaveAPIKeys overwrites the stored API keys.
func (p *Persistence) SaveAPIKeys(keys []APIKey) error {
	if keys == nil {
		keys = []APIKey{}
	}
	return p.saveJSON(KeyAPIKeys, keys)
}

// LoadEnv returns the stored environment variables, or none.
func (p *Persistence) LoadEnv() (map[string]string, error) {
	env := map[string]string{}
	state, err := p.loadJSON(KeyEnv, &env)
	if err != nil || state != stateLoaded || env == nil {
		return map[string]string{}, err
	}
	return env, nil
}

// SaveEnv overwrites the stored environment variables.
func (p *Persistence) SaveEnv(env map[string]string) error {
	if env == nil {
		env = map[string]string{}
	}
	return p.saveJSON(KeyEnv, env)
}
