package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("decodes and validates", func(t *testing.T) {
		var dest loginBody
		err := DecodeJSONBody(jsonRequest(`{"email":"owner@example.com","password":"hunter2hunter"}`), &dest)
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", dest.Email)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		var dest loginBody
		err := DecodeJSONBody(jsonRequest(`{"email":"owner@example.com","password":"hunter2hunter","extra":1}`), &dest)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		var dest loginBody
		err := DecodeJSONBody(jsonRequest(`{"email":`), &dest)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	})

	t.Run("reports failures under json field names", func(t *testing.T) {
		var dest loginBody
		err := DecodeJSONBody(jsonRequest(`{"email":"not-an-email","password":"short"}`), &dest)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)

		details, ok := typed.Details().(map[string]string)
		require.True(t, ok, "details should be a field map, got %T", typed.Details())
		assert.Equal(t, "must be a valid email", details["email"])
		assert.Equal(t, "must be at least 8", details["password"])
	})
}
