package validation

import (
	"strings"
	"unicode/utf8"
)

const (
	displayNameMinLen = 2
	displayNameMaxLen = 50
)

const forbiddenDisplayNameChars = `<>"'\`

// CheckDisplayName validates the application display name: 2-50 characters
// after trimming, with markup/quoting characters rejected because the name
// ends up in the generated manifest and download filenames.
func CheckDisplayName(f FieldErrors, field, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		f.Add(field, "is required")
		return
	}
	// Length bounds count runes, not bytes, so multi-byte names get the
	// full 50 characters.
	length := utf8.RuneCountInString(name)
	if length < displayNameMinLen {
		f.Add(field, "is too short")
		return
	}
	if length > displayNameMaxLen {
		f.Add(field, "is too long")
		return
	}
	if strings.ContainsAny(name, forbiddenDisplayNameChars) {
		f.Add(field, "contains forbidden characters")
	}
}

// SanitizeFilename reduces a display name to a safe download filename stem.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "app"
	}
	return b.String()
}
