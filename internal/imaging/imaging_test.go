package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func newGray(w, h int, fill func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	return img
}

func uniform(v uint8) func(x, y int) uint8 {
	return func(int, int) uint8 { return v }
}

func stripes(x, y int) uint8 {
	return uint8((x*37 + y*11) % 256)
}

func TestRegionOfInterest(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		mode     ROIMode
		expected image.Rectangle
	}{
		{"square third of frame", 600, 600, ROISquare, image.Rect(200, 200, 400, 400)},
		{"square clamped to minimum", 300, 300, ROISquare, image.Rect(100, 100, 200, 200)},
		{"square clamped to maximum", 1200, 1200, ROISquare, image.Rect(450, 450, 750, 750)},
		{"square on landscape frame", 900, 600, ROISquare, image.Rect(350, 200, 550, 400)},
		{"square clipped to small frame", 50, 80, ROISquare, image.Rect(0, 0, 50, 80)},
		{"degenerate single pixel", 1, 1, ROISquare, image.Rect(0, 0, 1, 1)},
		{"empty mode means square", 600, 600, "", image.Rect(200, 200, 400, 400)},
		{"central seventy percent", 100, 200, ROICentral, image.Rect(15, 30, 85, 170)},
		{"central single pixel", 1, 1, ROICentral, image.Rect(0, 0, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RegionOfInterest(image.Rect(0, 0, tt.w, tt.h), tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("RegionOfInterest(%dx%d, %s) = %v, want %v", tt.w, tt.h, tt.mode, got, tt.expected)
			}
		})
	}
}

func TestRegionOfInterest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		mode ROIMode
	}{
		{"zero width square", 0, 10, ROISquare},
		{"zero height central", 10, 0, ROICentral},
		{"empty frame", 0, 0, ROISquare},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RegionOfInterest(image.Rect(0, 0, tt.w, tt.h), tt.mode)
			if !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("expected ErrInvalidRegion, got %v", err)
			}
		})
	}

	if _, err := RegionOfInterest(image.Rect(0, 0, 10, 10), "oval"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestCrop(t *testing.T) {
	img := newGray(10, 10, func(x, y int) uint8 { return uint8(y*10 + x) })
	out := Crop(img, image.Rect(2, 3, 5, 7))

	if out.Bounds() != image.Rect(0, 0, 3, 4) {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.GrayAt(0, 0).Y; got != 32 {
		t.Errorf("top-left = %d, want 32", got)
	}
	if got := out.GrayAt(2, 3).Y; got != 64 {
		t.Errorf("bottom-right = %d, want 64", got)
	}
}

func TestAdjustBrightness(t *testing.T) {
	tests := []struct {
		in, want uint8
	}{
		{0, 0},
		{100, 130},
		{190, 247},
		{200, 255},
		{255, 255},
	}

	for _, tt := range tests {
		out := AdjustBrightness(newGray(2, 2, uniform(tt.in)), 1.3)
		if got := out.GrayAt(1, 1).Y; got != tt.want {
			t.Errorf("AdjustBrightness(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestEqualize(t *testing.T) {
	t.Run("two levels stretch to full range", func(t *testing.T) {
		img := newGray(4, 4, func(x, y int) uint8 {
			if x < 2 {
				return 10
			}
			return 20
		})
		out := Equalize(img)
		if got := out.GrayAt(0, 0).Y; got != 0 {
			t.Errorf("dark level = %d, want 0", got)
		}
		if got := out.GrayAt(3, 3).Y; got != 255 {
			t.Errorf("bright level = %d, want 255", got)
		}
	})

	t.Run("uniform image unchanged", func(t *testing.T) {
		out := Equalize(newGray(3, 3, uniform(77)))
		if got := out.GrayAt(1, 1).Y; got != 77 {
			t.Errorf("uniform pixel = %d, want 77", got)
		}
	})

	t.Run("histogram preserved in count", func(t *testing.T) {
		out := Equalize(newGray(16, 16, stripes))
		hist := Histogram(out)
		total := 0
		for _, n := range hist {
			total += n
		}
		if total != 256 {
			t.Errorf("total pixels = %d, want 256", total)
		}
	})
}

func TestPreprocessor_Process(t *testing.T) {
	p, err := NewPreprocessor(DefaultOptions())
	if err != nil {
		t.Fatalf("NewPreprocessor failed: %v", err)
	}

	img := newGray(640, 480, stripes)
	out, err := p.Process(img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 128, 128) {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}

	again, err := p.Process(img)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !bytes.Equal(out.Pix, again.Pix) {
		t.Error("Process is not deterministic")
	}
}

func TestPreprocessor_CustomSize(t *testing.T) {
	opts := DefaultOptions()
	opts.CanonicalSize = 64
	opts.ROIMode = ROICentral
	opts.Filter = FilterBiLinear

	p, err := NewPreprocessor(opts)
	if err != nil {
		t.Fatalf("NewPreprocessor failed: %v", err)
	}
	out, q, err := p.ProcessWithQuality(newGray(1, 1, uniform(128)))
	if err != nil {
		t.Fatalf("ProcessWithQuality failed: %v", err)
	}
	if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}
	if q < 0 || q > 1 {
		t.Errorf("quality %v out of range", q)
	}
}

func TestPreprocessor_InvalidRegion(t *testing.T) {
	p, err := NewPreprocessor(DefaultOptions())
	if err != nil {
		t.Fatalf("NewPreprocessor failed: %v", err)
	}
	_, err = p.Process(image.NewGray(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion, got %v", err)
	}
}

func TestOptions_Validate(t *testing.T) {
	defaults := DefaultOptions()
	if defaults.ROIMode != ROISquare || defaults.CanonicalSize != 128 ||
		defaults.Filter != FilterCatmullRom || math.Abs(defaults.BrightnessGain-1.3) > 1e-9 {
		t.Fatalf("unexpected defaults: %+v", defaults)
	}

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"unknown mode", func(o *Options) { o.ROIMode = "oval" }},
		{"zero gain", func(o *Options) { o.BrightnessGain = 0 }},
		{"tiny canonical size", func(o *Options) { o.CanonicalSize = 4 }},
		{"unknown filter", func(o *Options) { o.Filter = "lanczos" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			if err := opts.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestQuality(t *testing.T) {
	flat := Quality(newGray(50, 50, uniform(128)))
	if math.Abs(flat-0.2) > 0.0001 {
		t.Errorf("Quality(flat mid-gray) = %v, want 0.2", flat)
	}

	textured := Quality(newGray(50, 50, stripes))
	if textured <= flat {
		t.Errorf("textured quality %v should exceed flat quality %v", textured, flat)
	}
	if textured > 1 {
		t.Errorf("quality %v out of range", textured)
	}

	if got := Quality(image.NewGray(image.Rect(0, 0, 0, 0))); got != 0 {
		t.Errorf("Quality(empty) = %v, want 0", got)
	}
}

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := range 6 {
		for x := range 8 {
			src.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	if got := img.GrayAt(3, 3).Y; got != 255 {
		t.Errorf("white pixel decoded as %d", got)
	}

	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFromPixels(t *testing.T) {
	img, err := FromPixels(3, 2, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("FromPixels failed: %v", err)
	}
	if got := img.GrayAt(2, 1).Y; got != 6 {
		t.Errorf("pixel (2,1) = %d, want 6", got)
	}

	if _, err := FromPixels(3, 2, []byte{1, 2}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}
