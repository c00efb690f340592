package features

import (
	"image"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// Neighbor offsets in clockwise order starting at the top-left pixel.
var lbpNeighbors = [8]image.Point{
	{-1, -1}, {0, -1}, {1, -1}, {1, 0},
	{1, 1}, {0, 1}, {-1, 1}, {-1, 0},
}

// lbpCode returns the 8-bit local binary pattern of the pixel at (x, y).
// Bit i is set when neighbor i is at least as bright as the center.
func lbpCode(img *image.Gray, x, y int) uint8 {
	center := img.GrayAt(x, y).Y
	var code uint8
	for i, d := range lbpNeighbors {
		if img.GrayAt(x+d.X, y+d.Y).Y >= center {
			code |= 1 << (7 - i)
		}
	}
	return code
}

// textureHistogram folds the 256-bin LBP histogram into contiguous buckets,
// each divided by the number of interior pixels.
func textureHistogram(img *image.Gray, buckets int) []float64 {
	b := img.Bounds()
	var hist [constants.LBPBins]int
	n := 0
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			hist[lbpCode(img, x, y)]++
			n++
		}
	}

	out := make([]float64, buckets)
	if n == 0 {
		return out
	}
	for code, count := range hist {
		out[code*buckets/constants.LBPBins] += float64(count)
	}
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}
