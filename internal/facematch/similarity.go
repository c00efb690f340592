// Package facematch scores face descriptors against the enrollment store.
package facematch

import (
	"math"

	"github.com/kozaktomas/faceauth/internal/constants"
)

// Similarity scores two descriptors in [0, 1].
// The cosine similarity is rescaled to [0, 1] and sharpened with a power law.
// Descriptors of different length or with zero norm score 0.
func Similarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return FromCosine(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// FromCosine maps a cosine similarity in [-1, 1] onto the similarity scale.
func FromCosine(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	// Clamp to [-1, 1] to handle floating point errors
	c = math.Max(-1, math.Min(1, c))
	s := (c + 1) / 2
	return math.Max(0, math.Min(1, math.Pow(s, constants.SimilarityExponent)))
}

// FromCosineDistance maps a cosine distance (1 - cosine) onto the similarity scale.
func FromCosineDistance(d float64) float64 {
	return FromCosine(1 - d)
}
