package imaging

import (
	"image"
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// AdjustBrightness multiplies every pixel by gain, clamped to [0, 255].
func AdjustBrightness(img *image.Gray, gain float64) *image.Gray {
	var lut [256]uint8
	for v := range lut {
		lut[v] = clampByte(math.Round(float64(v) * gain))
	}
	return applyLUT(img, &lut)
}

// Equalize spreads the intensity histogram over the full range using its
// cumulative distribution. Single-valued images are returned unchanged.
func Equalize(img *image.Gray) *image.Gray {
	hist := Histogram(img)

	var cdf [256]int
	running := 0
	for v, n := range hist {
		running += n
		cdf[v] = running
	}
	total := running

	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}

	var lut [256]uint8
	if total == cdfMin {
		for v := range lut {
			lut[v] = uint8(v)
		}
		return applyLUT(img, &lut)
	}

	scale := float64(constants.MaxIntensity) / float64(total-cdfMin)
	for v := range lut {
		if cdf[v] < cdfMin {
			continue
		}
		lut[v] = clampByte(math.Round(float64(cdf[v]-cdfMin) * scale))
	}
	return applyLUT(img, &lut)
}

// Histogram counts pixels per intensity value.
func Histogram(img *image.Gray) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}
	return hist
}

func applyLUT(img *image.Gray, lut *[256]uint8) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		out := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x, v := range src {
			out[x] = lut[v]
		}
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= constants.MaxIntensity {
		return constants.MaxIntensity
	}
	return uint8(v)
}
