package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageNotFound is returned when the source holds no object at the location
var ErrImageNotFound = errors.New("image not found")

// ErrUnsupportedFormat is returned for payloads no registered decoder accepts
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge is returned when the image header declares more pixels
// than the decoder accepts
var ErrImageTooLarge = errors.New("image too large")

// DefaultMaxImagePixels bounds width*height of decoded images
const DefaultMaxImagePixels int64 = 25_000_000

// ImageFetcher retrieves and decodes an image from a location
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// DecodeImage decodes PNG, JPEG, GIF, WebP, BMP or TIFF data of at most
// DefaultMaxImagePixels pixels and reports the format name
func DecodeImage(r io.Reader) (image.Image, string, error) {
	return DecodeImageLimited(r, DefaultMaxImagePixels)
}

// DecodeImageLimited reads the image header first and rejects images over
// maxPixels before any pixel buffer is allocated. maxPixels <= 0 disables
// the check.
func DecodeImageLimited(r io.Reader, maxPixels int64) (image.Image, string, error) {
	if maxPixels > 0 {
		var header bytes.Buffer
		cfg, format, err := image.DecodeConfig(io.TeeReader(r, &header))
		if err != nil {
			return nil, "", decodeError(err)
		}
		if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
			return nil, format, fmt.Errorf("%w: %s %dx%d exceeds %d pixels", ErrImageTooLarge, format, cfg.Width, cfg.Height, maxPixels)
		}
		// Replay the consumed header in front of the rest of the stream
		r = io.MultiReader(&header, r)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", decodeError(err)
	}
	return img, format, nil
}

func decodeError(err error) error {
	if errors.Is(err, image.ErrFormat) {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return fmt.Errorf("failed to decode image: %w", err)
}
