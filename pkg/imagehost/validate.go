package imagehost

import (
	"errors"
	"slices"

	"github.com/gabriel-vasile/mimetype"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

// AllowedTypes lists the accepted image MIME types.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var (
	ErrImageTooLarge   = errors.New("image exceeds 5MB")
	ErrUnsupportedType = errors.New("only jpeg, png, gif and webp images are allowed")
)

// Validate checks size and sniffed content type of an image payload.
func Validate(data []byte) error {
	if len(data) > MaxImageSize {
		return ErrImageTooLarge
	}
	mtype := mimetype.Detect(data)
	if !slices.ContainsFunc(AllowedTypes, func(t string) bool { return mtype.Is(t) }) {
		return ErrUnsupportedType
	}
	return nil
}
