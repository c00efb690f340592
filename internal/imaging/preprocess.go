// Package imaging turns decoded frames into the canonical grayscale form
// consumed by the feature extractor.
//
// The region of interest is a fixed geometric heuristic, not a face detector:
// results are only meaningful when the subject is centered in the frame.
package imaging

import (
	"fmt"
	"image"

	"github.com/kozaktomas/faceauth/internal/constants"
	defaults "github.com/mcuadros/go-defaults"
	"golang.org/x/image/draw"
)

// Resampling filter names.
const (
	FilterCatmullRom = "catmullrom"
	FilterBiLinear   = "bilinear"
)

// Options configures the preprocessing pipeline.
// Enrollment and authentication must use the same options.
type Options struct {
	ROIMode        ROIMode `default:"square"`
	BrightnessGain float64 `default:"1.3"`
	CanonicalSize  int     `default:"128"`
	Filter         string  `default:"catmullrom"`
}

// DefaultOptions returns the standard pipeline options.
func DefaultOptions() Options {
	var opts Options
	defaults.SetDefaults(&opts)
	return opts
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if _, err := ParseROIMode(string(o.ROIMode)); err != nil {
		return err
	}
	if o.BrightnessGain <= 0 {
		return fmt.Errorf("brightness gain must be positive, got %v", o.BrightnessGain)
	}
	if o.CanonicalSize < constants.MinCanonicalSize {
		return fmt.Errorf("canonical size must be at least %d, got %d", constants.MinCanonicalSize, o.CanonicalSize)
	}
	if _, err := interpolator(o.Filter); err != nil {
		return err
	}
	return nil
}

// Preprocessor applies crop, brightness, equalization and resize in order.
type Preprocessor struct {
	opts   Options
	interp draw.Interpolator
}

// NewPreprocessor creates a preprocessor after validating opts.
func NewPreprocessor(opts Options) (*Preprocessor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocessing options: %w", err)
	}
	interp, _ := interpolator(opts.Filter)
	return &Preprocessor{opts: opts, interp: interp}, nil
}

// Options returns the options the preprocessor was built with.
func (p *Preprocessor) Options() Options {
	return p.opts
}

// Process returns the canonical image for img.
func (p *Preprocessor) Process(img *image.Gray) (*image.Gray, error) {
	out, _, err := p.process(img, false)
	return out, err
}

// ProcessWithQuality also returns the quality estimate of the cropped region.
func (p *Preprocessor) ProcessWithQuality(img *image.Gray) (*image.Gray, float64, error) {
	return p.process(img, true)
}

func (p *Preprocessor) process(img *image.Gray, withQuality bool) (*image.Gray, float64, error) {
	roi, err := RegionOfInterest(img.Bounds(), p.opts.ROIMode)
	if err != nil {
		return nil, 0, err
	}
	face := Crop(img, roi)

	var quality float64
	if withQuality {
		quality = Quality(face)
	}

	face = AdjustBrightness(face, p.opts.BrightnessGain)
	face = Equalize(face)
	return p.resize(face), quality, nil
}

func (p *Preprocessor) resize(img *image.Gray) *image.Gray {
	size := p.opts.CanonicalSize
	dst := image.NewGray(image.Rect(0, 0, size, size))
	p.interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func interpolator(name string) (draw.Interpolator, error) {
	switch name {
	case FilterCatmullRom, "":
		return draw.CatmullRom, nil
	case FilterBiLinear:
		return draw.BiLinear, nil
	}
	return nil, fmt.Errorf("unknown resampling filter %q", name)
}
