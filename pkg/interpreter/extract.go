package interpreter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Declaration patterns, tried in order. Only the first textual match of the
// first keyword that matches is considered.
var declarationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`const\s+[A-Za-z_$][\w$]*\s*=\s*\{`),
	regexp.MustCompile(`let\s+[A-Za-z_$][\w$]*\s*=\s*\{`),
	regexp.MustCompile(`var\s+[A-Za-z_$][\w$]*\s*=\s*\{`),
}

// looseAssignment is the last resort used by imports: any `= {...};`.
var looseAssignment = regexp.MustCompile(`=\s*\{`)

// CodeTemplate is the layout produced by JSONToCode.
const CodeTemplate = `// Mistalic AI Agent Code
// Version: 0.01.0001-beta

// Define your AI agent below
const agent = %s;

// Export the agent configuration
export default agent;`

// CodeLanguage is the language tag of files produced by JSONToCode.
const CodeLanguage = "javascript"

// ExtractData locates the first object-literal declaration in content and
// returns it as data.
func ExtractData(content string) (interface{}, error) {
	for _, pattern := range declarationPatterns {
		loc := pattern.FindStringIndex(content)
		if loc == nil {
			continue
		}
		return literalAt(content, loc[1]-1)
	}
	return nil, parseErrorf(-1, "no object declaration (const, let or var) found")
}

// ExtractToJSON extracts the embedded object literal and renders it as
// pretty-printed JSON.
func ExtractToJSON(content string) (string, error) {
	data, err := ExtractData(content)
	if err != nil {
		return "", err
	}
	return MarshalPretty(data)
}

// ExtractLoose behaves like ExtractData but falls back to any `= {...};`
// assignment when no declaration keyword matches.
func ExtractLoose(content string) (interface{}, error) {
	data, err := ExtractData(content)
	if err == nil {
		return data, nil
	}
	for _, pattern := range declarationPatterns {
		if pattern.MatchString(content) {
			return nil, err
		}
	}

	loc := looseAssignment.FindStringIndex(content)
	if loc == nil {
		return nil, err
	}
	return literalAt(content, loc[1]-1)
}

// literalAt parses the object starting at brace and requires the statement
// to be terminated by a semicolon.
func literalAt(content string, brace int) (interface{}, error) {
	value, end, err := parseLiteralAt(content, brace)
	if err != nil {
		return nil, err
	}

	p := &literalParser{src: content, pos: end}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos >= len(content) || content[p.pos] != ';' {
		return nil, parseErrorf(end, "object literal must be followed by ';'")
	}
	return value, nil
}

// ParseJSON strictly validates content as JSON and returns the decoded value
// with object key order preserved.
func ParseJSON(content string) (interface{}, error) {
	var probe interface{}
	if err := json.Unmarshal([]byte(content), &probe); err != nil {
		offset := -1
		if syntaxErr, ok := err.(*json.SyntaxError); ok {
			offset = int(syntaxErr.Offset)
		}
		return nil, &ParseError{Reason: "invalid JSON: " + err.Error(), Offset: offset}
	}
	return ParseLiteral(content)
}

// LooksLikeCode reports whether text handed over as JSON is probably a
// script declaring an object.
func LooksLikeCode(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.Contains(trimmed, "//") ||
		strings.HasPrefix(trimmed, "const ") ||
		strings.HasPrefix(trimmed, "let ") ||
		strings.HasPrefix(trimmed, "var ")
}

// CleanJSON turns imported .json content into valid JSON. Content that looks
// like a script has its object literal extracted and pretty-printed; plain
// content is returned trimmed after validation.
func CleanJSON(content string) (string, error) {
	cleaned := strings.TrimSpace(content)

	if LooksLikeCode(cleaned) {
		data, err := ExtractLoose(cleaned)
		if err != nil {
			return "", fmt.Errorf("content is a script, not JSON: %w", err)
		}
		return MarshalPretty(data)
	}

	if _, err := ParseJSON(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// JSONToCode wraps data in the agent code template.
func JSONToCode(data interface{}) (string, error) {
	pretty, err := MarshalPretty(data)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(CodeTemplate, pretty), nil
}

// MarshalPretty renders v as JSON with a two-space indent. Objects keep
// their key order and HTML characters are left unescaped.
func MarshalPretty(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, ""); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func writeJSON(buf *bytes.Buffer, v interface{}, indent string) error {
	switch val := v.(type) {
	case *Object:
		if val == nil || val.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		inner := indent + "  "
		buf.WriteString("{\n")
		first := true
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				buf.WriteString(",\n")
			}
			first = false
			buf.WriteString(inner)
			if err := writeScalar(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := writeJSON(buf, pair.Value, inner); err != nil {
				return err
			}
		}
		buf.WriteString("\n" + indent + "}")
	case map[string]interface{}:
		return writeJSON(buf, objectFromMap(val), indent)
	case []interface{}:
		if len(val) == 0 {
			buf.WriteString("[]")
			return nil
		}
		inner := indent + "  "
		buf.WriteString("[\n")
		for i, item := range val {
			if i > 0 {
				buf.WriteString(",\n")
			}
			buf.WriteString(inner)
			if err := writeJSON(buf, item, inner); err != nil {
				return err
			}
		}
		buf.WriteString("\n" + indent + "]")
	default:
		return writeScalar(buf, v)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v interface{}) error {
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	buf.Write(bytes.TrimRight(scratch.Bytes(), "\n"))
	return nil
}

// objectFromMap converts a decoded map into an Object with sorted keys, the
// order encoding/json would use.
func objectFromMap(m map[string]interface{}) *Object {
	raw, _ := json.Marshal(m)
	if value, err := ParseLiteral(string(raw)); err == nil {
		if obj, ok := value.(*Object); ok {
			return obj
		}
	}
	return NewObject()
}
