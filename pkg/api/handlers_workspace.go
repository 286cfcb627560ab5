package api

import (
	"net/http"
	"strings"

	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/interpreter"
	"github.com/harun/mistalic/pkg/workspace"
)

// FilesResponse is the body of GET /workspace/files
type FilesResponse struct {
	Files  []workspace.FileRecord `json:"files"`
	Active string                 `json:"active"`
}

// CreateFileRequest is the body of POST /workspace/files
type CreateFileRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// UpdateFileRequest is the body of PUT /workspace/files
type UpdateFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// RenameFileRequest is the body of POST /workspace/files/rename
type RenameFileRequest struct {
	Path    string `json:"path"`
	NewName string `json:"newName"`
}

// PathRequest carries a single file path
type PathRequest struct {
	Path string `json:"path"`
}

// ImportRequest is the body of POST /workspace/import
type ImportRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// SearchResponse is the body of GET /workspace/search
type SearchResponse struct {
	Query  string                `json:"query"`
	Files  []workspace.FileMatch `json:"files"`
	Agents []agent.Record        `json:"agents"`
}

// workspaceResult records a workspace mutation and writes the error reply
// when err is set. It reports whether the caller may continue.
func (s *Server) workspaceResult(w http.ResponseWriter, operation string, err error) bool {
	status := "success"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.WorkspaceOperationsTotal.WithLabelValues(operation, status).Inc()
		s.metrics.WorkspaceFiles.Set(float64(len(s.workspace.Files())))
	}
	if err == nil {
		return true
	}

	code := statusFor(err)
	if code >= 500 {
		s.logger.Error().Err(err).Str("operation", operation).Msg("Workspace operation failed")
	}
	writeError(w, code, errorMessage(err))
	return false
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp := FilesResponse{Files: s.workspace.Files()}
		if active, ok := s.workspace.Active(); ok {
			resp.Active = active.Path
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req CreateFileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		file, err := s.workspace.Create(req.Name, req.Content, req.Language)
		if !s.workspaceResult(w, "create", err) {
			return
		}
		writeJSON(w, http.StatusCreated, file)

	case http.MethodPut:
		var req UpdateFileRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		file, err := s.workspace.Update(req.Path, req.Content)
		if !s.workspaceResult(w, "update", err) {
			return
		}
		writeJSON(w, http.StatusOK, file)

	case http.MethodDelete:
		path := r.URL.Query().Get("path")
		err := s.workspace.Delete(path)
		if !s.workspaceResult(w, "delete", err) {
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "File deleted successfully"})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req RenameFileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	file, err := s.workspace.Rename(req.Path, req.NewName)
	if !s.workspaceResult(w, "rename", err) {
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		file, ok := s.workspace.Active()
		if !ok {
			writeError(w, http.StatusNotFound, "No active file")
			return
		}
		writeJSON(w, http.StatusOK, file)

	case http.MethodPut:
		var req PathRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		file, err := s.workspace.SetActive(req.Path)
		if !s.workspaceResult(w, "activate", err) {
			return
		}
		writeJSON(w, http.StatusOK, file)

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPut)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req PathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	result, err := s.workspace.Save(req.Path)
	if !s.workspaceResult(w, "save", err) {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	file, err := s.workspace.Import(req.Name, req.Content)
	if !s.workspaceResult(w, "import", err) {
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	format := query.Get("format")
	if format == "" {
		format = workspace.FormatJSON
	}
	exported, err := s.workspace.Export(query.Get("path"), format)
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, exported)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req PathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	file, err := s.workspace.ConvertToCode(req.Path)
	if !s.workspaceResult(w, "convert", err) {
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// handleSearch matches files by name and content, and agents by name and
// description.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query().Get("q")
	resp := SearchResponse{
		Query:  query,
		Files:  s.workspace.Search(query),
		Agents: []agent.Record{},
	}
	if strings.TrimSpace(query) != "" {
		for _, a := range s.agents.List() {
			if workspace.ContainsFold(a.Name, query) || workspace.ContainsFold(a.Description, query) {
				resp.Agents = append(resp.Agents, a)
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePublish reads the agent declared in a workspace file and adds it to
// the agent store.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		var req PathRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		path = req.Path
	}
	if path == "" {
		if active, ok := s.workspace.Active(); ok {
			path = active.Path
		}
	}

	def, err := s.workspace.ExtractAgent(path)
	if err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}

	record, err := s.agents.Create(createParams(def))
	if err != nil {
		s.agentError(w, err)
		return
	}
	s.agentsChanged()
	writeJSON(w, http.StatusOK, AgentResponse{Success: true, Agent: record})
}

func createParams(def *interpreter.AgentDefinition) agent.CreateParams {
	params := agent.CreateParams{
		Name:         def.Name,
		Description:  def.Description,
		Model:        def.PrimaryModel(),
		SystemPrompt: def.SystemPrompt,
	}
	for _, fn := range def.Functions {
		params.Functions = append(params.Functions, agent.Function{Name: fn.Name, Description: fn.Description})
	}
	return params
}
