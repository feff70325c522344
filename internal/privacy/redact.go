// Package privacy hides credentials in log lines and error messages.
package privacy

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

const redactedPlaceholder = "[REDACTED]"

// tokenParam matches a token query parameter in a rendered URL.
var tokenParam = regexp.MustCompile(`(?i)([?&]token=)[^&\s"']+`)

// Compile compiles a list of regex pattern strings into compiled regexps.
// Returns an error if any pattern is invalid.
func Compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile redact pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Apply replaces all matches of the compiled patterns in text with [REDACTED].
func Apply(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		text = re.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}

// Redactor scrubs known secrets, token query parameters and extra patterns.
type Redactor struct {
	secrets  []string
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor for the given literal secrets. Empty
// secrets are ignored.
func NewRedactor(patterns []string, secrets ...string) (*Redactor, error) {
	compiled, err := Compile(patterns)
	if err != nil {
		return nil, err
	}
	r := &Redactor{patterns: compiled}
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			r.secrets = append(r.secrets, s)
		}
	}
	return r, nil
}

// Redact returns text with every secret replaced.
func (r *Redactor) Redact(text string) string {
	if r == nil || text == "" {
		return text
	}
	for _, s := range r.secrets {
		text = strings.ReplaceAll(text, s, redactedPlaceholder)
	}
	text = tokenParam.ReplaceAllString(text, "${1}"+redactedPlaceholder)
	return Apply(text, r.patterns)
}

// Error wraps err so its message is redacted. errors.Is and errors.As still
// see the original chain.
func (r *Redactor) Error(err error) error {
	if err == nil || r == nil {
		return err
	}
	return &redactedError{msg: r.Redact(err.Error()), err: err}
}

// ReplaceAttr is a slog.HandlerOptions hook that redacts string and error
// attribute values.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.Redact(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.Redact(err.Error()))
		}
	}
	return a
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
