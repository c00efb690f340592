package features

import (
	"image"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// regionalStats returns mean and variance for each cell of a grid x grid
// partition, row by row. Means are scaled by 255 and variances by 255^2.
func regionalStats(img *image.Gray, grid int) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]float64, 0, 2*grid*grid)

	for gy := range grid {
		y0, y1 := gy*h/grid, (gy+1)*h/grid
		for gx := range grid {
			x0, x1 := gx*w/grid, (gx+1)*w/grid
			n := (x1 - x0) * (y1 - y0)
			if n == 0 {
				out = append(out, 0, 0)
				continue
			}

			var sum, sumSq float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					v := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
					sum += v
					sumSq += v * v
				}
			}
			mean := sum / float64(n)
			variance := max(sumSq/float64(n)-mean*mean, 0)

			out = append(out,
				mean/constants.MaxIntensity,
				variance/(constants.MaxIntensity*constants.MaxIntensity))
		}
	}
	return out
}
