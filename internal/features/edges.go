package features

import (
	"image"
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// edgeEnergy returns the mean absolute horizontal and vertical central
// differences over interior pixels, each scaled to [0, 1].
func edgeEnergy(img *image.Gray) []float64 {
	b := img.Bounds()
	var sumX, sumY float64
	n := 0
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			sumX += math.Abs(float64(img.GrayAt(x+1, y).Y) - float64(img.GrayAt(x-1, y).Y))
			sumY += math.Abs(float64(img.GrayAt(x, y+1).Y) - float64(img.GrayAt(x, y-1).Y))
			n++
		}
	}
	if n == 0 {
		return []float64{0, 0}
	}
	scale := float64(n) * constants.MaxIntensity
	return []float64{sumX / scale, sumY / scale}
}
