package workspace

import (
	"errors"
	"testing"

	"github.com/harun/mistalic/pkg/kvstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every read.
type brokenStore struct {
	*kvstore.MemoryStore
}

func (brokenStore) Get(string) ([]byte, error) {
	return nil, errDiskFull
}

func TestPersistence_LoadFiles(t *testing.T) {
	seed := []FileRecord{DefaultFile()}

	t.Run("missing key writes the seed", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		p := NewPersistence(store, zerolog.Nop())

		files, err := p.LoadFiles()
		require.NoError(t, err)
		assert.Equal(t, seed, files)
		assert.Equal(t, seed, storedFiles(t, store))
	})

	corrupt := map[string]string{
		"not json":        "not json",
		"json string":     `"not json"`,
		"wrong shape":     `{"name": "a.js"}`,
		"null":            "null",
		"empty list":      "[]",
		"duplicate paths": `[{"name":"a.js","path":"/a.js"},{"name":"a.js","path":"/a.js"}]`,
		"path mismatch":   `[{"name":"a.js","path":"/b.js"}]`,
		"missing name":    `[{"path":"/a.js"}]`,
	}
	for name, value := range corrupt {
		t.Run(name, func(t *testing.T) {
			store := kvstore.NewMemoryStore()
			require.NoError(t, store.Set(KeyFiles, []byte(value)))
			p := NewPersistence(store, zerolog.Nop())

			files, err := p.LoadFiles()
			require.NoError(t, err)
			assert.Equal(t, seed, files)

			raw, err := store.Get(KeyFiles)
			require.NoError(t, err)
			assert.Equal(t, value, string(raw), "corrupt value must not be overwritten on load")
		})
	}

	t.Run("valid list", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		p := NewPersistence(store, zerolog.Nop())
		want := []FileRecord{
			{Name: "b.ts", Path: "/b.ts", Content: "let x = 1", Language: "typescript"},
			{Name: "a.js", Path: "/a.js", Content: "", Language: "javascript"},
		}
		require.NoError(t, p.SaveFiles(want))

		files, err := p.LoadFiles()
		require.NoError(t, err)
		assert.Equal(t, want, files)
	})

	t.Run("backend failure is an error", func(t *testing.T) {
		p := NewPersistence(brokenStore{kvstore.NewMemoryStore()}, zerolog.Nop())

		_, err := p.LoadFiles()
		assert.True(t, errors.Is(err, errDiskFull))
	})
}

func TestPersistence_EditorSettings(t *testing.T) {
	t.Run("defaults when missing", func(t *testing.T) {
		p := NewPersistence(kvstore.NewMemoryStore(), zerolog.Nop())

		s, err := p.LoadEditorSettings()
		require.NoError(t, err)
		assert.Equal(t, EditorSettings{FontSize: 14, TabSize: 2, WordWrap: true, Minimap: true, LineNumbers: true}, s)
	})

	t.Run("defaults when corrupt", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		require.NoError(t, store.Set(KeyEditorSettings, []byte("{broken")))
		p := NewPersistence(store, zerolog.Nop())

		s, err := p.LoadEditorSettings()
		require.NoError(t, err)
		assert.Equal(t, DefaultEditorSettings(), s)
	})

	t.Run("defaults when out of range", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		require.NoError(t, store.Set(KeyEditorSettings, []byte(`{"fontSize": 99, "tabSize": 4}`)))
		p := NewPersistence(store, zerolog.Nop())

		s, err := p.LoadEditorSettings()
		require.NoError(t, err)
		assert.Equal(t, DefaultEditorSettings(), s)
	})

	t.Run("partial values merge over defaults", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		require.NoError(t, store.Set(KeyEditorSettings, []byte(`{"fontSize": 18, "minimap": false}`)))
		p := NewPersistence(store, zerolog.Nop())

		s, err := p.LoadEditorSettings()
		require.NoError(t, err)
		assert.Equal(t, 18, s.FontSize)
		assert.False(t, s.Minimap)
		assert.Equal(t, 2, s.TabSize)
		assert.True(t, s.WordWrap)
	})
}

func TestPersistence_Theme(t *testing.T) {
	store := kvstore.NewMemoryStore()
	p := NewPersistence(store, zerolog.Nop())

	theme, err := p.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeSettings{Name: "dark", AccentColor: "#007acc"}, theme)

	require.NoError(t, store.Set(KeyTheme, []byte(`{"name": "sepia"}`)))
	theme, err = p.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, DefaultTheme(), theme)

	want := ThemeSettings{Name: ThemeLight, AccentColor: "#16a34a"}
	require.NoError(t, p.SaveTheme(want))
	theme, err = p.LoadTheme()
	require.NoError(t, err)
	assert.Equal(t, want, theme)
}

func TestPersistence_KeysAndEnv(t *testing.T) {
	store := kvstore.NewMemoryStore()
	p := NewPersistence(store, zerolog.Nop())

	keys, err := p.LoadAPIKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, store.Set(KeyAPIKeys, []byte("garbage")))
	keys, err = p.LoadAPIKeys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	env, err := p.LoadEnv()
	require.NoError(t, err)
	assert.Empty(t, env)

	require.NoError(t, p.SaveEnv(map[string]string{"A": "1"}))
	env, err = p.LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1"}, env)
}
