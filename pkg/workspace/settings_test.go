package workspace

import (
	"errors"
	"testing"

	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_EditorSettings(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := newTestManager(t, store)
	assert.Equal(t, DefaultEditorSettings(), m.EditorSettings())

	var notified []interface{}
	m.On(EventSettingsChanged, func(p EventPayload) { notified = append(notified, p.Data) })

	want := EditorSettings{FontSize: 16, TabSize: 4, WordWrap: false, Minimap: true, LineNumbers: true, AutoSave: true}
	got, err := m.UpdateEditorSettings(want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []interface{}{want}, notified)

	_, err = m.UpdateEditorSettings(EditorSettings{FontSize: 7, TabSize: 2})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = m.UpdateEditorSettings(EditorSettings{FontSize: 14, TabSize: 3})
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Len(t, notified, 1)

	reopened := newTestManager(t, store)
	assert.Equal(t, want, reopened.EditorSettings())
}

func TestManager_Theme(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := newTestManager(t, store)
	assert.Equal(t, DefaultTheme(), m.Theme())

	_, err := m.UpdateTheme(ThemeSettings{Name: "neon", AccentColor: "#007acc"})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = m.UpdateTheme(ThemeSettings{Name: ThemeLight, AccentColor: "blue"})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = m.UpdateTheme(ThemeSettings{Name: ThemeLight, AccentColor: "#123456"})
	assert.True(t, errors.Is(err, ErrValidation), "accent must come from the palette")

	want := ThemeSettings{Name: ThemeHighContrast, AccentColor: "#dc2626"}
	_, err = m.UpdateTheme(want)
	require.NoError(t, err)

	assert.Equal(t, want, newTestManager(t, store).Theme())
}

func TestManager_APIKeys(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := newTestManager(t, store)

	_, err := m.AddAPIKey("", "secret", "")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = m.AddAPIKey("main", "", "")
	assert.True(t, errors.Is(err, ErrValidation))

	first, err := m.AddAPIKey("main", "sk-1234567890abcd", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultKeyProvider, first.Provider)
	assert.NotEmpty(t, first.ID)

	second, err := m.AddAPIKey("openai", "sk-openai", "openai")
	require.NoError(t, err)

	key, ok := m.KeyFor("openai")
	require.True(t, ok)
	assert.Equal(t, second.ID, key.ID)
	_, ok = m.KeyFor("gemini")
	assert.False(t, ok)

	assert.Equal(t, "sk-1********abcd", first.Masked().Key)
	assert.Equal(t, "********", APIKey{Key: "short"}.Masked().Key)

	require.NoError(t, m.DeleteAPIKey(first.ID))
	assert.True(t, errors.Is(m.DeleteAPIKey(first.ID), ErrNotFound))

	reopened := newTestManager(t, store)
	keys := reopened.APIKeys()
	require.Len(t, keys, 1)
	assert.Equal(t, second, keys[0])
}

func TestManager_Env(t *testing.T) {
	store := kvstore.NewMemoryStore()
	m := newTestManager(t, store)

	require.NoError(t, m.SetEnv("B", "2"))
	require.NoError(t, m.SetEnv("A", "1"))
	assert.True(t, errors.Is(m.SetEnv(" ", "x"), ErrValidation))
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, m.Env())

	require.NoError(t, m.UnsetEnv("B"))
	assert.True(t, errors.Is(m.UnsetEnv("B"), ErrNotFound))

	require.NoError(t, m.ReplaceEnv(map[string]string{"C": "3"}))
	assert.Equal(t, map[string]string{"C": "3"}, newTestManager(t, store).Env())
}

func TestManager_SettingsWriteFailure(t *testing.T) {
	store := newFlakyStore()
	m := newTestManager(t, store)
	store.setFailing(true)

	_, err := m.UpdateTheme(ThemeSettings{Name: ThemeLight, AccentColor: "#007acc"})
	assert.Error(t, err)
	assert.Equal(t, DefaultTheme(), m.Theme())

	assert.Error(t, m.SetEnv("A", "1"))
	assert.Empty(t, m.Env())

	_, err = m.AddAPIKey("k", "v", "")
	assert.Error(t, err)
	assert.Empty(t, m.APIKeys())
}
