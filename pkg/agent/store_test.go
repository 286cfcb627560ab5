package agent

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_Seeds(t *testing.T) {
	store := NewStore(zerolog.Nop())

	agents := store.List()
	require.Len(t, agents, 2)
	assert.Equal(t, "agent_123456789", agents[0].ID)
	assert.Equal(t, "Code Assistant", agents[0].Name)
	assert.Equal(t, "agent_987654321", agents[1].ID)
	assert.Equal(t, DefaultModel, agents[1].Model)
}

func TestStore_Create(t *testing.T) {
	t.Run("defaults model and generates id", func(t *testing.T) {
		store := NewEmptyStore(zerolog.Nop())

		record, err := store.Create(CreateParams{Name: "A", Description: "B"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(record.ID, "agent_"))
		assert.Len(t, record.ID, len("agent_")+12)
		assert.Equal(t, DefaultModel, record.Model)
		assert.False(t, record.Created.IsZero())
		assert.Equal(t, 1, store.Len())
	})

	t.Run("keeps optional fields", func(t *testing.T) {
		store := NewEmptyStore(zerolog.Nop())

		record, err := store.Create(CreateParams{
			Name:         "A",
			Description:  "B",
			Model:        "mistral-large-latest",
			SystemPrompt: "be brief",
			Functions:    []Function{{Name: "f", Description: "does f"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "mistral-large-latest", record.Model)
		assert.Equal(t, "be brief", record.SystemPrompt)
		assert.Equal(t, []Function{{Name: "f", Description: "does f"}}, record.Functions)
	})

	t.Run("requires name and description", func(t *testing.T) {
		store := NewStore(zerolog.Nop())

		_, err := store.Create(CreateParams{})
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = store.Create(CreateParams{Name: "A"})
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = store.Create(CreateParams{Name: "A", Description: "B", Functions: []Function{{Description: "x"}}})
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Equal(t, 2, store.Len())
	})

	t.Run("ids are unique", func(t *testing.T) {
		store := NewEmptyStore(zerolog.Nop())

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Create(CreateParams{Name: "A", Description: "B"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		seen := map[string]bool{}
		for _, a := range store.List() {
			assert.False(t, seen[a.ID])
			seen[a.ID] = true
		}
		assert.Len(t, seen, 50)
	})
}

func TestStore_Update(t *testing.T) {
	store := NewStore(zerolog.Nop())

	updated, err := store.Update(UpdateParams{ID: "agent_123456789", Model: "mistral-large-latest"})
	require.NoError(t, err)
	assert.Equal(t, "Code Assistant", updated.Name)
	assert.Equal(t, "mistral-large-latest", updated.Model)

	_, err = store.Update(UpdateParams{ID: "agent_missing", Name: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Update(UpdateParams{Name: "x"})
	assert.True(t, errors.Is(err, ErrValidation))

	before := store.List()
	_, _ = store.Update(UpdateParams{ID: "agent_missing", Name: "x"})
	assert.Equal(t, before, store.List())
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(zerolog.Nop())

	require.NoError(t, store.Delete("agent_123456789"))
	assert.Equal(t, 1, store.Len())
	assert.True(t, errors.Is(store.Delete("agent_123456789"), ErrNotFound))
	assert.True(t, errors.Is(store.Delete(""), ErrValidation))

	_, err := store.Get("agent_987654321")
	assert.NoError(t, err)
}

func TestStore_ListIsACopy(t *testing.T) {
	store := NewEmptyStore(zerolog.Nop())
	_, err := store.Create(CreateParams{Name: "A", Description: "B", Functions: []Function{{Name: "f"}}})
	require.NoError(t, err)

	list := store.List()
	list[0].Name = "changed"
	list[0].Functions[0].Name = "changed"

	assert.Equal(t, "A", store.List()[0].Name)
	assert.Equal(t, "f", store.List()[0].Functions[0].Name)
}

func TestModels(t *testing.T) {
	models := Models()
	require.Len(t, models, 4)
	assert.Equal(t, Model{ID: "mistral-small-latest", Name: "Mistral Small", Description: "Fast and efficient model for general tasks", Free: true}, models[0])
	assert.False(t, models[3].Free)

	m, ok := LookupModel("gemini-2.0-flash")
	require.True(t, ok)
	assert.Equal(t, "Gemini 2", m.Name)
	_, ok = LookupModel("gpt-9")
	assert.False(t, ok)
}
