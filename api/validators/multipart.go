package validators

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

// ParseMultipart parses the form with an overall in-memory budget. File parts
// beyond the budget spill to disk, which the submit surface never wants, so
// the request body itself is capped first.
func ParseMultipart(r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return nil
}

// FormFileBytes reads one uploaded file part fully into memory, enforcing a
// per-part ceiling. A missing part returns (nil, nil).
func FormFileBytes(r *http.Request, field string, maxBytes int64) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file upload: "+field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading file upload: "+field)
	}
	if int64(len(data)) > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" exceeds the size limit")
	}
	return data, nil
}

// FormBool reads a checkbox-style form value.
func FormBool(r *http.Request, field string) bool {
	v := strings.TrimSpace(strings.ToLower(r.FormValue(field)))
	if v == "" {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v == "on" || v == "yes"
}
