// Package media encodes inline images and offloads them to object storage.
package media

import (
	"encoding/base64"
	"mime"
	"net/http"
	"strings"

	"github.com/Laisky/errors/v2"
)

// MaxImageSize is the largest decoded image accepted from clients
const MaxImageSize = 5 << 20

// ErrInvalidDataURL indicates a value that is not a base64 image data URL
var ErrInvalidDataURL = errors.New("invalid image data url")

// IsDataURL reports whether s looks like an inline data URL
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// EncodeDataURL returns `data:<mime>;base64,<payload>` for an image.
// The content type is sniffed from raw.
func EncodeDataURL(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", errors.Wrap(ErrInvalidDataURL, "empty image")
	}
	if len(raw) > MaxImageSize {
		return "", errors.Wrapf(ErrInvalidDataURL, "image is %d bytes, max %d", len(raw), MaxImageSize)
	}

	contentType := http.DetectContentType(raw)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.Wrapf(ErrInvalidDataURL, "content type %q is not an image", contentType)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeDataURL parses a base64 image data URL
func DecodeDataURL(dataURL string) (contentType string, raw []byte, err error) {
	if !IsDataURL(dataURL) {
		return "", nil, errors.Wrap(ErrInvalidDataURL, "missing data: scheme")
	}

	meta, payload, ok := strings.Cut(strings.TrimPrefix(dataURL, "data:"), ",")
	if !ok {
		return "", nil, errors.Wrap(ErrInvalidDataURL, "missing payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, errors.Wrap(ErrInvalidDataURL, "payload must be base64")
	}

	contentType, _, err = mime.ParseMediaType(strings.TrimSuffix(meta, ";base64"))
	if err != nil {
		return "", nil, errors.Wrap(ErrInvalidDataURL, err.Error())
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", nil, errors.Wrapf(ErrInvalidDataURL, "content type %q is not an image", contentType)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageSize+3 {
		return "", nil, errors.Wrapf(ErrInvalidDataURL, "image exceeds %d bytes", MaxImageSize)
	}
	if raw, err = base64.StdEncoding.DecodeString(payload); err != nil {
		return "", nil, errors.Wrap(ErrInvalidDataURL, err.Error())
	}
	if len(raw) > MaxImageSize {
		return "", nil, errors.Wrapf(ErrInvalidDataURL, "image exceeds %d bytes", MaxImageSize)
	}

	return contentType, raw, nil
}

// extension picks a file suffix for an image content type
func extension(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		if _, sub, ok := strings.Cut(contentType, "/"); ok {
			return "." + sub
		}
		return ""
	}
	return exts[0]
}
