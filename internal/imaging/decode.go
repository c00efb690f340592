package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/faceauth/internal/constants"
	_ "github.com/spakin/netpbm"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ErrInvalidImage is returned for buffers that cannot describe a grayscale image.
var ErrInvalidImage = errors.New("invalid image")

// Decode decodes PNG, JPEG, GIF, BMP or Netpbm data into an 8-bit grayscale image.
func Decode(data []byte) (*image.Gray, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding config: %w", ErrInvalidImage, err)
	}
	if cfg.Width > constants.MaxImageSide || cfg.Height > constants.MaxImageSide {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side",
			ErrInvalidImage, cfg.Width, cfg.Height, constants.MaxImageSide)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrInvalidImage, err)
	}
	return ToGray(img), nil
}

// ToGray converts any image to grayscale with its origin moved to (0, 0).
// Color sources are converted with the ITU-R BT.601 luma weights.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// FromPixels wraps a row-major 8-bit buffer of width*height samples.
// The buffer is copied so the caller may reuse it.
func FromPixels(width, height int, pix []byte) (*image.Gray, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidImage, width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: expected %d samples for %dx%d, got %d",
			ErrInvalidImage, width*height, width, height, len(pix))
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return img, nil
}
