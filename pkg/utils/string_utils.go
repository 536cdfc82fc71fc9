package utils

import "strings"

// NewNullString returns nil for blank strings so optional columns are stored as NULL.
func NewNullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally inside a pattern.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
