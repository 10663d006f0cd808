// Package uploads stores user submitted image files behind a small
// Storage interface so handlers never touch a disk or bucket directly.
package uploads

import (
	"context"
	"io"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Storage persists image payloads and removes them again. Save returns
// the key the caller should persist alongside the record that owns the
// image.
type Storage interface {
	Save(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
}

// mimeExtensions maps the accepted image content types to the file
// extension stored keys carry.
var mimeExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpg":  ".jpg",
	"image/jpeg": ".jpeg",
}

// NewImageKey builds a random storage key for an uploaded image, or an
// error when the content type is not an accepted image format.
func NewImageKey(contentType string) (string, error) {
	ext, ok := mimeExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", errors.New("unsupported image type", errors.CategoryValidation).
			WithTextCode("INVALID_IMAGE_TYPE").
			WithMetadata(map[string]any{"content_type": contentType})
	}

	return "uploads/images/" + uuid.NewString() + ext, nil
}
