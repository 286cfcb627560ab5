package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// redactionRule replaces matches of re with replacement, which may refer to
// capture groups to keep a field label visible.
type redactionRule struct {
	re          *regexp.Regexp
	replacement string
}

// Redactor masks provider credentials and other secrets in log output
type Redactor struct {
	rules []redactionRule
}

// NewRedactor creates a redactor for the credential formats Mistalic handles
func NewRedactor() *Redactor {
	r := &Redactor{}

	// Whole-token formats. Anthropic before OpenAI, both start with "sk-".
	r.mustAdd(`sk-ant-[a-zA-Z0-9_-]{20,}`, redacted)
	r.mustAdd(`sk-[a-zA-Z0-9_-]{20,}`, redacted)
	r.mustAdd(`AIza[0-9A-Za-z_-]{30,}`, redacted)
	r.mustAdd(`Bearer\s+[a-zA-Z0-9._-]+`, "Bearer "+redacted)

	// Labelled values. Mistral keys have no prefix and are only caught here.
	r.mustAdd(`(?i)((?:api[_-]?key|x-api-key)["\s:=]+)[A-Za-z0-9_-]{16,}`, "${1}"+redacted)
	r.mustAdd(`(?i)([A-Z_]*_API_KEY=)\S+`, "${1}"+redacted)
	r.mustAdd(`(?i)((?:password|secret)["\s:=]+)[^\s"]+`, "${1}"+redacted)

	return r
}

func (r *Redactor) mustAdd(pattern, replacement string) {
	r.rules = append(r.rules, redactionRule{re: regexp.MustCompile(pattern), replacement: replacement})
}

// AddPattern adds a pattern whose matches are replaced entirely
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, redactionRule{re: re, replacement: redacted})
	return nil
}

// Redact masks every secret found in s
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, rule.replacement)
	}
	return s
}

// Wrap returns a writer that redacts everything written through it
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return redactingWriter{out: w, redactor: r}
}

type redactingWriter struct {
	out      io.Writer
	redactor *Redactor
}

// Write reports len(p) on success; the redacted text may be shorter.
func (w redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.out, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
