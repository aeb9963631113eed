package validation

import (
	"bytes"
	"encoding/binary"

	pkgerrors "github.com/sitewrap/sitewrap-backend/pkg/errors"
)

const (
	IconMinSize = 100
	IconMaxSize = 1 << 20

	iconRequiredDimension = 512
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// CheckIcon validates an uploaded launcher icon by inspecting the raw bytes:
// PNG signature, size bounds, and the IHDR dimensions. Decoding the full image
// is deliberately avoided; the build worker re-encodes it anyway.
func CheckIcon(data []byte) error {
	if len(data) < IconMinSize {
		return pkgerrors.New(pkgerrors.CodeValidation, "icon file is too small")
	}
	if len(data) > IconMaxSize {
		return pkgerrors.New(pkgerrors.CodeValidation, "icon file exceeds the 1 MiB limit")
	}
	if !bytes.HasPrefix(data, pngMagic) {
		return pkgerrors.New(pkgerrors.CodeValidation, "icon must be a PNG image")
	}
	// IHDR is mandated to be the first chunk: width at offset 16, height at 20.
	if len(data) < 24 {
		return pkgerrors.New(pkgerrors.CodeValidation, "icon PNG is truncated")
	}
	width := binary.BigEndian.Uint32(data[16:20])
	height := binary.BigEndian.Uint32(data[20:24])
	if width != iconRequiredDimension || height != iconRequiredDimension {
		return pkgerrors.New(pkgerrors.CodeValidation, "icon must be exactly 512x512 pixels")
	}
	return nil
}
