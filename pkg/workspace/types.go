package workspace

import (
	"fmt"
	"strings"
	"time"
)

// FileRecord is a single file held by the workspace. Path is always
// "/" + Name.
type FileRecord struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// PathFor derives the path of a file from its name.
func PathFor(name string) string {
	return "/" + name
}

// EditorSettings are the editor preferences persisted alongside the files.
type EditorSettings struct {
	FontSize    int  `json:"fontSize"`
	TabSize     int  `json:"tabSize"`
	WordWrap    bool `json:"wordWrap"`
	Minimap     bool `json:"minimap"`
	LineNumbers bool `json:"lineNumbers"`
	AutoSave    bool `json:"autoSave"`
}

// Editor setting bounds.
const (
	MinFontSize = 8
	MaxFontSize = 32
)

// DefaultEditorSettings returns the settings used when nothing is stored.
func DefaultEditorSettings() EditorSettings {
	return EditorSettings{
		FontSize:    14,
		TabSize:     2,
		WordWrap:    true,
		Minimap:     true,
		LineNumbers: true,
		AutoSave:    false,
	}
}

// Validate checks the settings are within the supported ranges.
func (s EditorSettings) Validate() error {
	if s.FontSize < MinFontSize || s.FontSize > MaxFontSize {
		return fmt.Errorf("%w: font size must be between %d and %d", ErrValidation, MinFontSize, MaxFontSize)
	}
	switch s.TabSize {
	case 2, 4, 8:
	default:
		return fmt.Errorf("%w: tab size must be 2, 4 or 8", ErrValidation)
	}
	return nil
}

// Theme names.
const (
	ThemeDark         = "dark"
	ThemeLight        = "light"
	ThemeHighContrast = "high-contrast"
)

// AccentColors is the palette offered for the accent color.
var AccentColors = []string{"#007acc", "#6b46c1", "#16a34a", "#dc2626"}

// ThemeSettings selects the color scheme.
type ThemeSettings struct {
	Name        string `json:"name"`
	AccentColor string `json:"accentColor"`
}

// DefaultTheme returns the theme used when nothing is stored.
func DefaultTheme() ThemeSettings {
	return ThemeSettings{
		Name:        ThemeDark,
		AccentColor: "#007acc",
	}
}

// Validate checks the theme name and accent color.
func (t ThemeSettings) Validate() error {
	switch t.Name {
	case ThemeDark, ThemeLight, ThemeHighContrast:
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrValidation, t.Name)
	}
	for _, c := range AccentColors {
		if t.AccentColor == c {
			return nil
		}
	}
	return fmt.Errorf("%w: accent color must be one of %s", ErrValidation, strings.Join(AccentColors, ", "))
}

// APIKey is a provider credential kept in the workspace.
type APIKey struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Key      string `json:"key"`
	Provider string `json:"provider"`
}

// DefaultKeyProvider is assigned to keys added without a provider.
const DefaultKeyProvider = "mistral"

// Masked returns a copy of the key safe to display.
func (k APIKey) Masked() APIKey {
	masked := k
	if len(k.Key) <= 8 {
		masked.Key = "********"
	} else {
		masked.Key = k.Key[:4] + "********" + k.Key[len(k.Key)-4:]
	}
	return masked
}

// Event identifies a workspace notification.
type Event string

const (
	EventFileCreated     Event = "workspace.file.created"
	EventFileUpdated     Event = "workspace.file.updated"
	EventFileRenamed     Event = "workspace.file.renamed"
	EventFileDeleted     Event = "workspace.file.deleted"
	EventActiveChanged   Event = "workspace.active.changed"
	EventSaved           Event = "workspace.saved"
	EventSettingsChanged Event = "settings.editor.changed"
	EventThemeChanged    Event = "settings.theme.changed"
	EventKeysChanged     Event = "settings.keys.changed"
	EventEnvChanged      Event = "settings.env.changed"
)

// EventPayload is delivered to subscribers.
type EventPayload struct {
	Event     Event       `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path,omitempty"`
	OldPath   string      `json:"oldPath,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}
