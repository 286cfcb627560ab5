package agent

import "time"

// Function is a capability an agent declares.
type Function struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Record is an agent configuration held by the Store.
type Record struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Model        string     `json:"model"`
	SystemPrompt string     `json:"systemPrompt,omitempty"`
	Created      time.Time  `json:"created"`
	Functions    []Function `json:"functions,omitempty"`
}

// CreateParams are the fields accepted when creating an agent.
type CreateParams struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Model        string     `json:"model,omitempty"`
	SystemPrompt string     `json:"systemPrompt,omitempty"`
	Functions    []Function `json:"functions,omitempty"`
}

// UpdateParams carries a partial update. Empty fields are left unchanged.
type UpdateParams struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Description  string `json:"description,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// Model describes an entry of the model catalog.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Free        bool   `json:"free"`
}

// Generation defaults.
const (
	DefaultModel        = "mistral-small-latest"
	DefaultSystemPrompt = "You are a helpful AI assistant that specializes in coding and software development."
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 2048
)

// AuthProfile holds the credentials of one LLM provider.
type AuthProfile struct {
	Provider string `json:"provider" mapstructure:"provider"` // mistral, openai, anthropic, gemini
	APIKey   string `json:"api_key" mapstructure:"api_key"`
	BaseURL  string `json:"base_url,omitempty" mapstructure:"base_url"`
}

// AgentMessage is one turn of a conversation sent to a provider.
type AgentMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// TokenUsage tracks token consumption of a call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
