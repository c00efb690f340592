package features

import (
	"image"
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// symmetry compares the image with its mirror about the vertical midline.
// 1.0 means the left and right halves are identical.
func symmetry(img *image.Gray) float64 {
	b := img.Bounds()
	w := b.Dx()
	half := w / 2
	if half == 0 || b.Dy() == 0 {
		return 1
	}

	var diff float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for i := range half {
			left := img.GrayAt(b.Min.X+i, y).Y
			right := img.GrayAt(b.Max.X-1-i, y).Y
			diff += math.Abs(float64(left) - float64(right))
		}
	}
	mean := diff / float64(half*b.Dy())
	return 1 - mean/constants.MaxIntensity
}
