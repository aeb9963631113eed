package validation

import (
	"net/mail"
	"strings"

	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

// FieldErrors accumulates per-field validation failures so a response can
// enumerate every offending field at once instead of stopping at the first.
type FieldErrors map[string]string

func NewFieldErrors() FieldErrors {
	return FieldErrors{}
}

// Add records a failure for the named field. The first message per field wins.
func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; exists {
		return
	}
	f[field] = message
}

// AsError returns a validation error carrying the accumulated field map, or
// nil when every check passed.
func (f FieldErrors) AsError() error {
	if len(f) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
		WithDetails(map[string]any{"fields": map[string]string(f)})
}

// CheckEmail validates basic email well-formedness.
func CheckEmail(f FieldErrors, field, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		f.Add(field, "is required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		f.Add(field, "must be a valid email")
	}
}

// CheckPassword enforces the configured minimum length.
func CheckPassword(f FieldErrors, field, password string, minLength int) {
	if password == "" {
		f.Add(field, "is required")
		return
	}
	if minLength > 0 && len(password) < minLength {
		f.Add(field, "is too short")
	}
}
