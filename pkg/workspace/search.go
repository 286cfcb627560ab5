package workspace

import (
	"strings"
	"unicode"
)

// previewContext is the number of characters kept on each side of a match.
const previewContext = 20

// LineMatch is one matching line of a file.
type LineMatch struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Preview string `json:"preview"`
}

// FileMatch is a file whose name or content contains the query.
type FileMatch struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Language string      `json:"language"`
	Matches  []LineMatch `json:"matches"`
}

// Search finds files whose name or content contains query, ignoring case.
// A blank query matches nothing.
func (m *Manager) Search(query string) []FileMatch {
	results := []FileMatch{}
	if strings.TrimSpace(query) == "" {
		return results
	}

	q := []rune(query)
	for _, file := range m.Files() {
		nameHit := ContainsFold(file.Name, query)
		lines := contentMatches(file.Content, q)
		if !nameHit && len(lines) == 0 {
			continue
		}
		results = append(results, FileMatch{
			Name:     file.Name,
			Path:     file.Path,
			Language: file.Language,
			Matches:  lines,
		})
	}
	return results
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return indexFold([]rune(s), []rune(substr)) >= 0
}

func contentMatches(content string, query []rune) []LineMatch {
	matches := []LineMatch{}
	for i, line := range strings.Split(content, "\n") {
		runes := []rune(line)
		at := indexFold(runes, query)
		if at < 0 {
			continue
		}
		matches = append(matches, LineMatch{
			Line:    i + 1,
			Text:    strings.TrimSpace(line),
			Preview: preview(runes, at, len(query)),
		})
	}
	return matches
}

func preview(line []rune, at, length int) string {
	start := at - previewContext
	if start < 0 {
		start = 0
	}
	end := at + length + previewContext
	if end > len(line) {
		end = len(line)
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(string(line[start:end]))
	if end < len(line) {
		b.WriteString("...")
	}
	return b.String()
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of needle in haystack, or -1.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
