package api

import (
	"net/http"
	"strconv"

	"github.com/harun/mistalic/pkg/workspace"
)

// AddAPIKeyRequest is the body of POST /settings/api-keys
type AddAPIKeyRequest struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Provider string `json:"provider,omitempty"`
}

// APIKeysResponse is the body of GET /settings/api-keys
type APIKeysResponse struct {
	Keys []workspace.APIKey `json:"keys"`
}

// EnvResponse is the body of GET /settings/env
type EnvResponse struct {
	Env map[string]string `json:"env"`
}

// handleEditorSettings merges the request body over the current settings,
// so partial updates keep the fields they omit.
func (s *Server) handleEditorSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.workspace.EditorSettings())

	case http.MethodPut:
		settings := s.workspace.EditorSettings()
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		updated, err := s.workspace.UpdateEditorSettings(settings)
		if !s.workspaceResult(w, "editor_settings", err) {
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.workspace.Theme())

	case http.MethodPut:
		theme := s.workspace.Theme()
		if err := decodeJSON(r, &theme); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		updated, err := s.workspace.UpdateTheme(theme)
		if !s.workspaceResult(w, "theme", err) {
			return
		}
		writeJSON(w, http.StatusOK, updated)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

// handleAPIKeys lists, adds and removes API keys. Keys are masked unless
// the request asks for reveal=true.
func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reveal, _ := strconv.ParseBool(r.URL.Query().Get("reveal"))
		keys := s.workspace.APIKeys()
		if !reveal {
			for i := range keys {
				keys[i] = keys[i].Masked()
			}
		}
		writeJSON(w, http.StatusOK, APIKeysResponse{Keys: keys})

	case http.MethodPost:
		var req AddAPIKeyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		key, err := s.workspace.AddAPIKey(req.Name, req.Key, req.Provider)
		if !s.workspaceResult(w, "add_api_key", err) {
			return
		}
		writeJSON(w, http.StatusCreated, key.Masked())

	case http.MethodDelete:
		err := s.workspace.DeleteAPIKey(r.URL.Query().Get("id"))
		if !s.workspaceResult(w, "delete_api_key", err) {
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "API key deleted successfully"})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

// handleEnv reads or replaces the stored environment variables. DELETE
// removes the variable named by ?key=.
func (s *Server) handleEnv(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, EnvResponse{Env: s.workspace.Env()})

	case http.MethodPut:
		var req EnvResponse
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		err := s.workspace.ReplaceEnv(req.Env)
		if !s.workspaceResult(w, "env", err) {
			return
		}
		writeJSON(w, http.StatusOK, EnvResponse{Env: s.workspace.Env()})

	case http.MethodPost:
		var req SaveEnvRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		err := s.workspace.SetEnv(req.Key, req.Value)
		if !s.workspaceResult(w, "env", err) {
			return
		}
		writeJSON(w, http.StatusOK, EnvResponse{Env: s.workspace.Env()})

	case http.MethodDelete:
		err := s.workspace.UnsetEnv(r.URL.Query().Get("key"))
		if !s.workspaceResult(w, "env", err) {
			return
		}
		writeJSON(w, http.StatusOK, EnvResponse{Env: s.workspace.Env()})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete)
	}
}
