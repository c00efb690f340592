package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// ErrInvalidRegion is returned when the region of interest has no area.
var ErrInvalidRegion = errors.New("invalid region")

// ROIMode selects the geometric heuristic that stands in for face detection.
// Neither mode locates a face: both assume the subject is centered in the frame.
type ROIMode string

const (
	// ROISquare crops a centered square of side clamp(min(w,h)/3, 100, 300).
	ROISquare ROIMode = "square"
	// ROICentral keeps the central 70% of each axis.
	ROICentral ROIMode = "central"
)

// ParseROIMode validates a mode name.
func ParseROIMode(s string) (ROIMode, error) {
	switch ROIMode(s) {
	case ROISquare, ROICentral:
		return ROIMode(s), nil
	}
	return "", fmt.Errorf("unknown region mode %q (expected %q or %q)", s, ROISquare, ROICentral)
}

// RegionOfInterest computes the crop rectangle for an image of the given bounds.
// The rectangle is clipped to the bounds.
func RegionOfInterest(bounds image.Rectangle, mode ROIMode) (image.Rectangle, error) {
	w, h := bounds.Dx(), bounds.Dy()

	var roi image.Rectangle
	switch mode {
	case ROICentral:
		mx := int(float64(w) * (1 - constants.CentralROIFraction) / 2)
		my := int(float64(h) * (1 - constants.CentralROIFraction) / 2)
		roi = image.Rect(mx, my, w-mx, h-my)
	case ROISquare, "":
		side := min(max(min(w, h)/3, constants.MinROISide), constants.MaxROISide)
		x0 := (w - side) / 2
		y0 := (h - side) / 2
		roi = image.Rect(x0, y0, x0+side, y0+side)
	default:
		return image.Rectangle{}, fmt.Errorf("unknown region mode %q", mode)
	}

	roi = roi.Add(bounds.Min).Intersect(bounds)
	if roi.Dx() <= 0 || roi.Dy() <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d frame yields empty crop", ErrInvalidRegion, w, h)
	}
	return roi, nil
}

// Crop copies the given rectangle into a new image with origin (0, 0).
func Crop(img *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(img.Bounds())
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		src := img.PixOffset(r.Min.X, r.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+r.Dx()], img.Pix[src:src+r.Dx()])
	}
	return dst
}
