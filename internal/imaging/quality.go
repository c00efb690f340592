package imaging

import (
	"image"
	"math"
)

// Quality estimates how usable a cropped face region is, in [0, 1].
// It blends contrast (standard deviation), sharpness (mean gradient) and
// exposure (distance of the mean from mid-gray).
func Quality(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := float64(img.GrayAt(x, y).Y)
			sum += v
			sumSq += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	variance := max(sumSq/n-mean*mean, 0)

	var grad float64
	interior := 0
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			gx := math.Abs(float64(img.GrayAt(x+1, y).Y) - float64(img.GrayAt(x-1, y).Y))
			gy := math.Abs(float64(img.GrayAt(x, y+1).Y) - float64(img.GrayAt(x, y-1).Y))
			grad += (gx + gy) / 2
			interior++
		}
	}
	if interior > 0 {
		grad /= float64(interior)
	}

	contrast := math.Min(math.Sqrt(variance)/64, 1)
	sharpness := math.Min(grad/32, 1)
	exposure := 1 - math.Abs(mean-128)/128

	return clamp01(0.4*contrast + 0.4*sharpness + 0.2*exposure)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
