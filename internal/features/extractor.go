// Package features computes fixed-length face descriptors from canonical
// grayscale images.
//
// A descriptor concatenates, in order: regional mean/variance over a grid,
// horizontal and vertical edge energy, a coarse local binary pattern
// histogram and a left/right symmetry score. The result is L2-normalized.
package features

import (
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// Options configures the descriptor layout. Descriptors produced with
// different options have different lengths and never match.
type Options struct {
	GridSize       int
	TextureBuckets int
}

// DefaultOptions returns a 4x4 grid and 32 texture buckets.
func DefaultOptions() Options {
	return Options{
		GridSize:       constants.DefaultGridSize,
		TextureBuckets: constants.DefaultTextureBuckets,
	}
}

// Extractor converts canonical images into descriptors.
type Extractor struct {
	grid    int
	buckets int
}

// NewExtractor validates opts and creates an extractor.
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.GridSize < 1 {
		return nil, fmt.Errorf("grid size must be positive, got %d", opts.GridSize)
	}
	if opts.TextureBuckets < 1 || opts.TextureBuckets > constants.LBPBins {
		return nil, fmt.Errorf("texture buckets must be in [1, %d], got %d", constants.LBPBins, opts.TextureBuckets)
	}
	return &Extractor{grid: opts.GridSize, buckets: opts.TextureBuckets}, nil
}

// Length is the number of values in every descriptor this extractor returns.
func (e *Extractor) Length() int {
	return 2*e.grid*e.grid + 2 + e.buckets + 1
}

// Extract returns the unit-normalized descriptor of img.
func (e *Extractor) Extract(img *image.Gray) []float64 {
	desc := make([]float64, 0, e.Length())
	desc = append(desc, regionalStats(img, e.grid)...)
	desc = append(desc, edgeEnergy(img)...)
	desc = append(desc, textureHistogram(img, e.buckets)...)
	desc = append(desc, symmetry(img))
	return Normalize(desc)
}

// Normalize divides v by its L2 norm in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
