package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrValidation is returned when required fields are missing.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned for unknown agent ids.
	ErrNotFound = errors.New("agent not found")
)

// idAlphabet keeps generated ids URL-safe and readable.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Store keeps agent records for the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	agents []Record
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a store holding the seed agents.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		agents: SeedAgents(),
		logger: logger.With().Str("component", "agent-store").Logger(),
		now:    time.Now,
	}
}

// NewEmptyStore creates a store with no agents.
func NewEmptyStore(logger zerolog.Logger) *Store {
	s := NewStore(logger)
	s.agents = []Record{}
	return s
}

// SeedAgents returns the agents every new store starts with.
func SeedAgents() []Record {
	return []Record{
		{
			ID:          "agent_123456789",
			Name:        "Code Assistant",
			Description: "Helps with coding tasks and debugging",
			Model:       DefaultModel,
			Created:     time.Date(2023, time.November, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:          "agent_987654321",
			Name:        "Documentation Helper",
			Description: "Generates documentation for code",
			Model:       DefaultModel,
			Created:     time.Date(2023, time.November, 2, 14, 30, 0, 0, time.UTC),
		},
	}
}

// List returns all agents in creation order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.agents))
	for i, a := range s.agents {
		out[i] = a.clone()
	}
	return out
}

// Get returns the agent with id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.agents[i].clone(), nil
}

// Create appends a new agent. Name and description are required; the model
// defaults to DefaultModel.
func (s *Store) Create(params CreateParams) (Record, error) {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Description) == "" {
		return Record{}, fmt.Errorf("%w: Name and description are required", ErrValidation)
	}
	for i, fn := range params.Functions {
		if strings.TrimSpace(fn.Name) == "" {
			return Record{}, fmt.Errorf("%w: function %d has no name", ErrValidation, i)
		}
	}

	id, err := gonanoid.Generate(idAlphabet, 12)
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate agent id: %w", err)
	}

	model := params.Model
	if model == "" {
		model = DefaultModel
	}
	record := Record{
		ID:           "agent_" + id,
		Name:         params.Name,
		Description:  params.Description,
		Model:        model,
		SystemPrompt: params.SystemPrompt,
		Created:      s.now(),
		Functions:    append([]Function(nil), params.Functions...),
	}

	s.mu.Lock()
	s.agents = append(s.agents, record)
	s.mu.Unlock()

	s.logger.Info().Str("id", record.ID).Str("name", record.Name).Msg("Agent created")
	return record.clone(), nil
}

// Update merges the non-empty fields of params into an existing agent.
func (s *Store) Update(params UpdateParams) (Record, error) {
	if params.ID == "" {
		return Record{}, fmt.Errorf("%w: Agent ID is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(params.ID)
	if i < 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, params.ID)
	}

	a := &s.agents[i]
	if params.Name != "" {
		a.Name = params.Name
	}
	if params.Description != "" {
		a.Description = params.Description
	}
	if params.Model != "" {
		a.Model = params.Model
	}
	if params.SystemPrompt != "" {
		a.SystemPrompt = params.SystemPrompt
	}

	s.logger.Debug().Str("id", a.ID).Msg("Agent updated")
	return a.clone(), nil
}

// Delete removes the agent with id.
func (s *Store) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("%w: Agent ID is required", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.agents = append(s.agents[:i:i], s.agents[i+1:]...)

	s.logger.Info().Str("id", id).Msg("Agent deleted")
	return nil
}

// Len returns the number of agents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

func (s *Store) indexOf(id string) int {
	for i, a := range s.agents {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (r Record) clone() Record {
	if r.Functions != nil {
		r.Functions = append([]Function(nil), r.Functions...)
	}
	return r
}
