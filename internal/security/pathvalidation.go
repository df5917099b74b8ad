package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OutputPath joins dir and a generated file name. The name must be a bare
// file name: no separators, no "." or "..", so every output stays inside
// dir regardless of the filesystem behind it.
func OutputPath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty output file name")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid output file name %q", name)
	}
	return filepath.Join(dir, name), nil
}

// SanitizeFilename makes a safe label from an arbitrary string. It replaces
// any characters that are not ASCII letters, digits, dot, underscore or dash
// with an underscore, collapses repeated underscores and trims the result to
// a reasonable length.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	const maxLen = 128
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
