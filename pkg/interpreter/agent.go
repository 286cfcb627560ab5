package interpreter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// AgentSchema is the JSON Schema an extracted agent object must satisfy.
const AgentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "description"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string", "minLength": 1},
    "model": {"type": "string"},
    "models": {"type": "array", "items": {"type": "string"}},
    "systemPrompt": {"type": "string"},
    "functions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

var agentSchemaLoader = gojsonschema.NewStringLoader(AgentSchema)

// AgentFunction is a callable capability declared by an agent.
type AgentFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AgentDefinition is the typed view of an agent object found in a file.
type AgentDefinition struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Model        string          `json:"model,omitempty"`
	Models       []string        `json:"models,omitempty"`
	SystemPrompt string          `json:"systemPrompt,omitempty"`
	Functions    []AgentFunction `json:"functions,omitempty"`
}

// PrimaryModel returns the explicit model, or the first of the listed models.
func (d *AgentDefinition) PrimaryModel() string {
	if d.Model != "" {
		return d.Model
	}
	if len(d.Models) > 0 {
		return d.Models[0]
	}
	return ""
}

// ValidateAgent checks data against AgentSchema.
func ValidateAgent(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode agent data: %w", err)
	}

	result, err := gojsonschema.Validate(agentSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("agent schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return &ParseError{Reason: "invalid agent: " + strings.Join(msgs, "; "), Offset: -1}
	}
	return nil
}

// AgentFromData validates data and converts it to an AgentDefinition.
func AgentFromData(data interface{}) (*AgentDefinition, error) {
	if err := ValidateAgent(data); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent data: %w", err)
	}
	var def AgentDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, &ParseError{Reason: "invalid agent: " + err.Error(), Offset: -1}
	}
	return &def, nil
}

// ExtractAgent extracts the declared object from content and reads it as an
// agent definition.
func ExtractAgent(content string) (*AgentDefinition, error) {
	data, err := ExtractData(content)
	if err != nil {
		return nil, err
	}
	return AgentFromData(data)
}
