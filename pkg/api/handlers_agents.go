package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/harun/mistalic/pkg/agent"
)

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, AgentsResponse{Agents: s.agents.List()})

	case http.MethodPost:
		var params agent.CreateParams
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		record, err := s.agents.Create(params)
		if err != nil {
			s.agentError(w, err)
			return
		}
		s.agentsChanged()
		writeJSON(w, http.StatusOK, AgentResponse{Success: true, Agent: record})

	case http.MethodPut:
		var params agent.UpdateParams
		if err := decodeJSON(r, &params); err != nil {
			writeError(w, statusFor(err), errorMessage(err))
			return
		}
		record, err := s.agents.Update(params)
		if err != nil {
			s.agentError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AgentResponse{Success: true, Agent: record})

	case http.MethodDelete:
		if err := s.agents.Delete(r.URL.Query().Get("id")); err != nil {
			s.agentError(w, err)
			return
		}
		s.agentsChanged()
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Agent deleted successfully"})

	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) agentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrNotFound):
		writeError(w, http.StatusNotFound, "Agent not found")
	default:
		status := statusFor(err)
		if status >= 500 {
			s.logger.Error().Err(err).Msg("Agent store failure")
		}
		writeError(w, status, errorMessage(err))
	}
}

func (s *Server) agentsChanged() {
	if s.metrics != nil {
		s.metrics.Agents.Set(float64(s.agents.Len()))
	}
}

// handleSaveEnv acknowledges an environment variable without storing it.
// Durable variables live under /settings/env.
func (s *Server) handleSaveEnv(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req SaveEnvRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	if req.Key == "" || req.Value == "" {
		writeError(w, http.StatusBadRequest, "Key and value are required")
		return
	}

	s.logger.Debug().Str("key", req.Key).Msg("Environment variable acknowledged")
	writeJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Environment variable %s saved successfully", req.Key),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req agent.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, statusFor(err), errorMessage(err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	model := req.Model
	if model == "" {
		model = agent.DefaultModel
	}
	provider := agent.ProviderForModel(model)

	start := time.Now()
	result, err := s.generator.Generate(r.Context(), req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveGeneration(provider, generationErrorType(err), elapsed)
		}
		s.logger.Error().Err(err).Str("model", model).Msg("Text generation failed")
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{Success: false, Error: err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveGeneration(result.Provider, "", elapsed)
	}

	writeJSON(w, http.StatusOK, GenerateResponse{Success: true, Text: result.Text})
}

func generationErrorType(err error) string {
	switch {
	case errors.Is(err, agent.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, agent.ErrValidation):
		return "validation"
	default:
		return "upstream"
	}
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": agent.Models()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.startTime).Seconds(),
		Files:       len(s.workspace.Files()),
		Agents:      s.agents.Len(),
		Subscribers: s.events.Count(),
		Storage:     s.storage,
		Routes:      s.stats.Snapshot(),
		Timestamp:   time.Now().UnixMilli(),
	})
}
