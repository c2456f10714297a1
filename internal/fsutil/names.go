package fsutil

import "strings"

const maxNameLen = 128

// SanitizeName turns an identifier such as a model name or blob key into
// a single path element. Runs of characters outside [A-Za-z0-9._-] become
// one underscore; leading and trailing dots and underscores are dropped.
func SanitizeName(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !ok {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte('_')
		}
		pending = false
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
