package api

import (
	"net/http"
	"testing"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles_ListAndCreate(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})

	rec := env.do(t, http.MethodGet, "/workspace/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list FilesResponse
	decode(t, rec, &list)
	require.Len(t, list.Files, 1)
	assert.Equal(t, "/agent.js", list.Active)

	rec = env.do(t, http.MethodPost, "/workspace/files", CreateFileRequest{
		Name:    "test.js",
		Content: `const agent = {name:"X",description:"Y"};`,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var file workspace.FileRecord
	decode(t, rec, &file)
	assert.Equal(t, workspace.FileRecord{
		Name:     "test.js",
		Path:     "/test.js",
		Content:  `const agent = {name:"X",description:"Y"};`,
		Language: "javascript",
	}, file)

	rec = env.do(t, http.MethodGet, "/workspace/export?path=/test.js&format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exported workspace.ExportedFile
	decode(t, rec, &exported)
	assert.Equal(t, "test.json", exported.Name)
	assert.Equal(t, "{\n  \"name\": \"X\",\n  \"description\": \"Y\"\n}", exported.Content)
	assert.Equal(t, "application/json", exported.MimeType)

	active, ok := env.workspace.Active()
	require.True(t, ok)
	assert.Equal(t, "/test.js", active.Path)
}

func TestFiles_Errors(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})

	rec := env.do(t, http.MethodPost, "/workspace/files", CreateFileRequest{Name: "agent.js"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/workspace/files", CreateFileRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/workspace/files", UpdateFileRequest{Path: "/missing.js", Content: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/workspace/files?path=/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/workspace/export?path=/agent.js&format=yaml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, env.workspace.Files(), 1)
}

func TestFiles_UpdateRenameDelete(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	_, err := env.workspace.Create("b.ts", "", "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/workspace/files", UpdateFileRequest{Path: "/b.ts", Content: "let b = 1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/workspace/files/rename", RenameFileRequest{Path: "/b.ts", NewName: "c.ts"})
	require.Equal(t, http.StatusOK, rec.Code)
	var renamed workspace.FileRecord
	decode(t, rec, &renamed)
	assert.Equal(t, "/c.ts", renamed.Path)
	assert.Equal(t, "let b = 1", renamed.Content)

	active, _ := env.workspace.Active()
	assert.Equal(t, "/c.ts", active.Path)

	rec = env.do(t, http.MethodDelete, "/workspace/files?path=/c.ts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/workspace/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &active)
	assert.Equal(t, "/agent.js", active.Path)

	rec = env.do(t, http.MethodDelete, "/workspace/files?path=/agent.js", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/workspace/active", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActive_Set(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	_, err := env.workspace.Create("b.ts", "", "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodPut, "/workspace/active", PathRequest{Path: "/agent.js"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/workspace/active", PathRequest{Path: "/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	active, _ := env.workspace.Active()
	assert.Equal(t, "/agent.js", active.Path)
}

func TestSave(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})

	rec := env.do(t, http.MethodPost, "/workspace/save", PathRequest{})

	require.Equal(t, http.StatusOK, rec.Code)
	var result workspace.SaveResult
	decode(t, rec, &result)
	assert.Equal(t, "/agent.js", result.File.Path)
	require.NotNil(t, result.Agent)
	assert.Equal(t, "CodeAssistant", result.Agent.Name)
}

func TestImportAndConvert(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})

	rec := env.do(t, http.MethodPost, "/workspace/import", ImportRequest{
		Name:    "bot.json",
		Content: `const bot = {name: 'B', description: 'D'};`,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var file workspace.FileRecord
	decode(t, rec, &file)
	assert.Equal(t, "json", file.Language)
	assert.JSONEq(t, `{"name":"B","description":"D"}`, file.Content)

	rec = env.do(t, http.MethodPost, "/workspace/import", ImportRequest{Name: "bad.json", Content: "{nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/workspace/convert", PathRequest{Path: "/bot.json"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &file)
	assert.Equal(t, "bot.js", file.Name)
	assert.Equal(t, "javascript", file.Language)
	assert.Contains(t, file.Content, "const agent = {")

	rec = env.do(t, http.MethodPost, "/workspace/convert", PathRequest{Path: "/bot.js"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, ServerOptions{})
	_, err := env.workspace.Create("notes.md", "nothing\nDocumentation lives here", "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/workspace/search?q=documentation", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body SearchResponse
	decode(t, rec, &body)
	require.Len(t, body.Files, 1)
	assert.Equal(t, "/notes.md", body.Files[0].Path)
	assert.Equal(t, 2, body.Files[0].Matches[0].Line)
	require.Len(t, body.Agents, 1)
	assert.Equal(t, "Documentation Helper", body.Agents[0].Name)

	rec = env.do(t, http.MethodGet, "/workspace/search?q=", nil)
	decode(t, rec, &body)
	assert.Empty(t, body.Files)
	assert.Empty(t, body.Agents)
}

func TestPublish(t *testing.T) {
	t.Run("adds the declared agent", func(t *testing.T) {
		env := newTestEnv(t, ServerOptions{})

		rec := env.do(t, http.MethodPost, "/workspace/publish?path=/agent.js", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Success bool         `json:"success"`
			Agent   agent.Record `json:"agent"`
		}
		decode(t, rec, &body)
		assert.True(t, body.Success)
		assert.Equal(t, "CodeAssistant", body.Agent.Name)
		assert.Equal(t, "mistral-small-latest", body.Agent.Model)
		require.Len(t, body.Agent.Functions, 1)
		assert.Equal(t, "generateCode", body.Agent.Functions[0].Name)
		assert.Equal(t, 3, env.agents.Len())
	})

	t.Run("file without an agent", func(t *testing.T) {
		env := newTestEnv(t, ServerOptions{})
		_, err := env.workspace.Create("plain.js", "console.log(1)", "")
		require.NoError(t, err)

		rec := env.do(t, http.MethodPost, "/workspace/publish", PathRequest{Path: "/plain.js"})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, 2, env.agents.Len())
	})

	t.Run("unknown file", func(t *testing.T) {
		env := newTestEnv(t, ServerOptions{})

		rec := env.do(t, http.MethodPost, "/workspace/publish?path=/nope.js", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
