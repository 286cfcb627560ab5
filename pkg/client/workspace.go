package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/harun/mistalic/pkg/api"
	"github.com/harun/mistalic/pkg/workspace"
)

// ListFiles returns every workspace file and the active path.
func (c *Client) ListFiles(ctx context.Context) ([]workspace.FileRecord, string, error) {
	var resp api.FilesResponse
	if err := c.do(ctx, http.MethodGet, "/workspace/files", nil, nil, &resp); err != nil {
		return nil, "", err
	}
	return resp.Files, resp.Active, nil
}

// GetFile returns the file at path.
func (c *Client) GetFile(ctx context.Context, path string) (workspace.FileRecord, error) {
	files, _, err := c.ListFiles(ctx)
	if err != nil {
		return workspace.FileRecord{}, err
	}
	for _, f := range files {
		if f.Path == path {
			return f, nil
		}
	}
	return workspace.FileRecord{}, &APIError{StatusCode: http.StatusNotFound, Message: "file not found: " + path}
}

// CreateFile creates a file.
func (c *Client) CreateFile(ctx context.Context, name, content, language string) (workspace.FileRecord, error) {
	var file workspace.FileRecord
	err := c.do(ctx, http.MethodPost, "/workspace/files", nil, api.CreateFileRequest{Name: name, Content: content, Language: language}, &file)
	return file, err
}

// UpdateFile replaces the content of a file.
func (c *Client) UpdateFile(ctx context.Context, path, content string) (workspace.FileRecord, error) {
	var file workspace.FileRecord
	err := c.do(ctx, http.MethodPut, "/workspace/files", nil, api.UpdateFileRequest{Path: path, Content: content}, &file)
	return file, err
}

// RenameFile renames a file.
func (c *Client) RenameFile(ctx context.Context, path, newName string) (workspace.FileRecord, error) {
	var file workspace.FileRecord
	err := c.do(ctx, http.MethodPost, "/workspace/files/rename", nil, api.RenameFileRequest{Path: path, NewName: newName}, &file)
	return file, err
}

// DeleteFile deletes a file.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/workspace/files", url.Values{"path": {path}}, nil, nil)
}

// SetActive selects the active file.
func (c *Client) SetActive(ctx context.Context, path string) (workspace.FileRecord, error) {
	var file workspace.FileRecord
	err := c.do(ctx, http.MethodPut, "/workspace/active", nil, api.PathRequest{Path: path}, &file)
	return file, err
}

// SaveFile runs the save action on a file.
func (c *Client) SaveFile(ctx context.Context, path string) (workspace.SaveResult, error) {
	var result workspace.SaveResult
	err := c.do(ctx, http.MethodPost, "/workspace/save", nil, api.PathRequest{Path: path}, &result)
	return result, err
}

// ImportFile imports content under name.
func (c *Client) ImportFile(ctx context.Context, name, content string) (workspace.FileRecord, error) {
	var file workspace.FileRecord
	err := c.do(ctx, http.MethodPost, "/workspace/import", nil, api.ImportRequest{Name: name, Content: content}, &file)
	return file, err
}

// ExportFile exports a file as json or js.
func (c *Client) ExportFile(ctx context.Context, path, format string) (workspace.ExportedFile, error) {
	var exported workspace.ExportedFile
	err := c.do(ctx, http.MethodGet, "/workspace/export", url.Values{"path": {path}, "format": {format}}, nil, &exported)
	return exported, err
}

// Search matches files by name and content.
func (c *Client) Search(ctx context.Context, query string) ([]workspace.FileMatch, error) {
	var resp api.SearchResponse
	if err := c.do(ctx, http.MethodGet, "/workspace/search", url.Values{"q": {query}}, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// EditorSettings returns the editor preferences.
func (c *Client) EditorSettings(ctx context.Context) (workspace.EditorSettings, error) {
	var settings workspace.EditorSettings
	err := c.do(ctx, http.MethodGet, "/settings/editor", nil, nil, &settings)
	return settings, err
}

// UpdateEditorSettings replaces the editor preferences.
func (c *Client) UpdateEditorSettings(ctx context.Context, settings workspace.EditorSettings) (workspace.EditorSettings, error) {
	var updated workspace.EditorSettings
	err := c.do(ctx, http.MethodPut, "/settings/editor", nil, settings, &updated)
	return updated, err
}

// Theme returns the theme.
func (c *Client) Theme(ctx context.Context) (workspace.ThemeSettings, error) {
	var theme workspace.ThemeSettings
	err := c.do(ctx, http.MethodGet, "/settings/theme", nil, nil, &theme)
	return theme, err
}

// UpdateTheme replaces the theme.
func (c *Client) UpdateTheme(ctx context.Context, theme workspace.ThemeSettings) (workspace.ThemeSettings, error) {
	var updated workspace.ThemeSettings
	err := c.do(ctx, http.MethodPut, "/settings/theme", nil, theme, &updated)
	return updated, err
}

// APIKeys lists stored keys, masked.
func (c *Client) APIKeys(ctx context.Context) ([]workspace.APIKey, error) {
	var resp api.APIKeysResponse
	if err := c.do(ctx, http.MethodGet, "/settings/api-keys", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// AddAPIKey stores a key. The reply is masked.
func (c *Client) AddAPIKey(ctx context.Context, name, key, provider string) (workspace.APIKey, error) {
	var added workspace.APIKey
	err := c.do(ctx, http.MethodPost, "/settings/api-keys", nil, api.AddAPIKeyRequest{Name: name, Key: key, Provider: provider}, &added)
	return added, err
}

// DeleteAPIKey removes a key.
func (c *Client) DeleteAPIKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/settings/api-keys", url.Values{"id": {id}}, nil, nil)
}

// Env returns the stored environment variables.
func (c *Client) Env(ctx context.Context) (map[string]string, error) {
	var resp api.EnvResponse
	if err := c.do(ctx, http.MethodGet, "/settings/env", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Env, nil
}

// SetEnv stores one environment variable.
func (c *Client) SetEnv(ctx context.Context, key, value string) error {
	return c.do(ctx, http.MethodPost, "/settings/env", nil, api.SaveEnvRequest{Key: key, Value: value}, nil)
}
