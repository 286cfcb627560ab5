package workspace

import (
	"path/filepath"
	"strings"
)

// DefaultLanguage is used for names without a recognised extension.
const DefaultLanguage = "javascript"

var extensionLanguages = map[string]string{
	"js":   "javascript",
	"ts":   "typescript",
	"jsx":  "javascriptreact",
	"tsx":  "typescriptreact",
	"py":   "python",
	"html": "html",
	"css":  "css",
	"json": "json",
	"md":   "markdown",
}

// InferLanguage maps a file name to its language tag by extension.
func InferLanguage(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if lang, ok := extensionLanguages[strings.ToLower(ext)]; ok {
		return lang
	}
	return DefaultLanguage
}

// DefaultFileName is the name of the seed file.
const DefaultFileName = "agent.js"

// DefaultFileContent is the agent template the workspace starts with.
const DefaultFileContent = `// Mistalic AI Agent Code
// Version: 0.01.0001-beta

// Define your AI agent below
const agent = {
  name: "CodeAssistant",
  description: "An AI assistant that helps with coding tasks",
  models: ["mistral-small-latest"],
  functions: [
    {
      name: "generateCode",
      description: "Generate code based on a description",
      parameters: {
        type: "object",
        properties: {
          language: {
            type: "string",
            description: "Programming language to generate code in"
          },
          description: {
            type: "string",
            description: "Description of what the code should do"
          }
        },
        required: ["language", "description"]
      }
    }
  ]
};

// Export the agent configuration
export default agent;`

// DefaultFile returns the single-file seed.
func DefaultFile() FileRecord {
	return FileRecord{
		Name:     DefaultFileName,
		Path:     PathFor(DefaultFileName),
		Content:  DefaultFileContent,
		Language: DefaultLanguage,
	}
}
