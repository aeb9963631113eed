package validation

import (
	"archive/zip"
	"bytes"

	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

const HTMLBundleMaxSize = 20 << 20

// CheckHTMLBundle validates an uploaded site archive: it must be a readable
// zip within the size limit containing an index.html at the archive root.
func CheckHTMLBundle(data []byte) error {
	if len(data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "html bundle is required")
	}
	if len(data) > HTMLBundleMaxSize {
		return pkgerrors.New(pkgerrors.CodeValidation, "html bundle exceeds the 20 MiB limit")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "html bundle must be a zip archive")
	}
	for _, f := range zr.File {
		if f.Name == "index.html" {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "html bundle must contain index.html at its root")
}
