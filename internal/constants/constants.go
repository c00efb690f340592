// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Region of interest constants
const (
	// MinROISide is the smallest side of the centered square crop
	MinROISide = 100

	// MaxROISide is the largest side of the centered square crop
	MaxROISide = 300

	// CentralROIFraction is the share of each axis kept by the central crop mode
	CentralROIFraction = 0.70
)

// Preprocessing constants
const (
	// DefaultBrightnessGain is the fixed multiplier applied before equalization
	DefaultBrightnessGain = 1.3

	// DefaultCanonicalSize is the side of the square image handed to the extractor
	DefaultCanonicalSize = 128

	// MinCanonicalSize is the smallest canonical side that still yields interior pixels per grid cell
	MinCanonicalSize = 8

	// MaxIntensity is the largest 8-bit pixel value
	MaxIntensity = 255
)

// Feature extraction constants
const (
	// DefaultGridSize is the number of cells per axis for regional statistics
	DefaultGridSize = 4

	// DefaultTextureBuckets is the number of coarse LBP histogram buckets
	DefaultTextureBuckets = 32

	// LBPBins is the number of distinct 8-neighbor patterns
	LBPBins = 256
)

// Matching constants
const (
	// MaxWeight, MeanWeight and MinWeight aggregate per-sample similarities into one user score
	MaxWeight  = 0.4
	MeanWeight = 0.4
	MinWeight  = 0.2

	// SimilarityExponent sharpens rescaled cosine similarity
	SimilarityExponent = 1.5

	// WorkerPoolSize is the default number of parallel workers for match scoring
	WorkerPoolSize = 8

	// DefaultSearchLimit is the default number of nearest samples returned by candidate search
	DefaultSearchLimit = 5
)

// HNSW index parameters for sample candidate search
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100
)

// Adaptive threshold constants
const (
	// ThresholdFloor is the lowest acceptance threshold any user can receive
	ThresholdFloor = 0.70

	// MaxSampleBonus caps the reduction granted for the number of samples
	MaxSampleBonus = 0.10

	// SampleBonusDivisor scales the sample count into a bonus
	SampleBonusDivisor = 10.0

	// ConfidenceBaseline is the average confidence above which a bonus applies
	ConfidenceBaseline = 0.70

	// ConfidenceBonusFactor scales the confidence surplus into a bonus
	ConfidenceBonusFactor = 0.20
)

// Enrollment constants
const (
	// DefaultAccuracyThreshold is the global acceptance threshold
	DefaultAccuracyThreshold = 0.85

	// DefaultMinSamplesPerUser is the sample count required to be enrolled
	DefaultMinSamplesPerUser = 3

	// DefaultMaxSamplesPerUser caps samples kept per user
	DefaultMaxSamplesPerUser = 10

	// DefaultMinSampleConfidence is the quality gate for new samples
	DefaultMinSampleConfidence = 0.35

	// SchemaVersion is the version of the persisted store document
	SchemaVersion = 1

	// ExportVersion is the version of a single-user export document
	ExportVersion = "1.0"
)

// Upload constants
const (
	// MaxUploadSize is the maximum accepted image upload in bytes
	MaxUploadSize = 20 << 20

	// MaxImageSide is the maximum width or height accepted for decoding
	MaxImageSide = 8192
)
