package features

import (
	"image"
	"image/color"
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

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestExtractor_Length(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected int
	}{
		{"defaults", DefaultOptions(), 67},
		{"small grid", Options{GridSize: 2, TextureBuckets: 16}, 27},
		{"full histogram", Options{GridSize: 1, TextureBuckets: 256}, 261},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtractor(tt.opts)
			if err != nil {
				t.Fatalf("NewExtractor failed: %v", err)
			}
			if e.Length() != tt.expected {
				t.Errorf("Length() = %d, want %d", e.Length(), tt.expected)
			}
			desc := e.Extract(newGray(32, 32, func(x, y int) uint8 { return uint8(x * y) }))
			if len(desc) != tt.expected {
				t.Errorf("len(Extract()) = %d, want %d", len(desc), tt.expected)
			}
		})
	}
}

func TestNewExtractor_Invalid(t *testing.T) {
	for _, opts := range []Options{
		{GridSize: 0, TextureBuckets: 32},
		{GridSize: 4, TextureBuckets: 0},
		{GridSize: 4, TextureBuckets: 257},
	} {
		if _, err := NewExtractor(opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestExtract_UnitNorm(t *testing.T) {
	e, err := NewExtractor(DefaultOptions())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}

	images := map[string]*image.Gray{
		"gradient": newGray(128, 128, func(x, y int) uint8 { return uint8(x + y) }),
		"flat":     newGray(128, 128, func(int, int) uint8 { return 128 }),
		"black":    newGray(128, 128, func(int, int) uint8 { return 0 }),
	}

	for name, img := range images {
		t.Run(name, func(t *testing.T) {
			desc := e.Extract(img)
			if math.Abs(l2(desc)-1) > 1e-9 {
				t.Errorf("norm = %v, want 1", l2(desc))
			}
			for i, v := range desc {
				if v < 0 || math.IsNaN(v) {
					t.Errorf("desc[%d] = %v", i, v)
				}
			}
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e, _ := NewExtractor(DefaultOptions())
	img := newGray(64, 64, func(x, y int) uint8 { return uint8((x*7 + y*13) % 256) })

	a := e.Extract(img)
	b := e.Extract(img)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("descriptor differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float64{3, 4})
	if math.Abs(v[0]-0.6) > 1e-12 || math.Abs(v[1]-0.8) > 1e-12 {
		t.Errorf("Normalize([3 4]) = %v", v)
	}

	zero := Normalize([]float64{0, 0, 0})
	for _, x := range zero {
		if x != 0 {
			t.Errorf("zero vector changed: %v", zero)
		}
	}
}

func TestRegionalStats(t *testing.T) {
	// Left half 0, right half 255, grid 2x2.
	img := newGray(4, 4, func(x, y int) uint8 {
		if x < 2 {
			return 0
		}
		return 255
	})
	got := regionalStats(img, 2)
	want := []float64{0, 0, 1, 0, 0, 0, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("stats[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// Checkerboard cell: mean 127.5, variance 127.5^2.
	checker := newGray(2, 2, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 0
		}
		return 255
	})
	got = regionalStats(checker, 1)
	if math.Abs(got[0]-0.5) > 1e-12 || math.Abs(got[1]-0.25) > 1e-12 {
		t.Errorf("checker stats = %v, want [0.5 0.25]", got)
	}

	// More cells than pixels leaves empty cells at zero.
	got = regionalStats(newGray(1, 1, func(int, int) uint8 { return 255 }), 2)
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
}

func TestEdgeEnergy(t *testing.T) {
	ramp := newGray(5, 5, func(x, y int) uint8 { return uint8(x * 10) })
	got := edgeEnergy(ramp)
	if math.Abs(got[0]-20.0/255) > 1e-12 || got[1] != 0 {
		t.Errorf("edgeEnergy(ramp) = %v, want [%v 0]", got, 20.0/255)
	}

	tiny := edgeEnergy(newGray(2, 2, func(int, int) uint8 { return 9 }))
	if tiny[0] != 0 || tiny[1] != 0 {
		t.Errorf("edgeEnergy(2x2) = %v, want zeros", tiny)
	}
}

func TestLBPCode(t *testing.T) {
	tests := []struct {
		name     string
		center   uint8
		topLeft  uint8
		others   uint8
		expected uint8
	}{
		{"center brightest", 200, 100, 100, 0},
		{"center darkest", 10, 100, 100, 255},
		{"equal counts as set", 50, 50, 50, 255},
		{"only top-left brighter", 100, 150, 50, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := newGray(3, 3, func(x, y int) uint8 {
				switch {
				case x == 1 && y == 1:
					return tt.center
				case x == 0 && y == 0:
					return tt.topLeft
				}
				return tt.others
			})
			if got := lbpCode(img, 1, 1); got != tt.expected {
				t.Errorf("lbpCode = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestTextureHistogram(t *testing.T) {
	img := newGray(16, 16, func(x, y int) uint8 { return uint8((x*31 + y*17) % 256) })
	hist := textureHistogram(img, 32)

	var sum float64
	for _, v := range hist {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("histogram sums to %v, want 1", sum)
	}

	flat := textureHistogram(newGray(8, 8, func(int, int) uint8 { return 5 }), 32)
	if flat[31] != 1 {
		t.Errorf("flat image bucket 31 = %v, want 1", flat[31])
	}
}

func TestSymmetry(t *testing.T) {
	mirrored := newGray(6, 4, func(x, y int) uint8 {
		return uint8(min(x, 5-x)*40 + y)
	})
	if got := symmetry(mirrored); got != 1 {
		t.Errorf("symmetry(mirrored) = %v, want 1", got)
	}

	split := newGray(4, 2, func(x, y int) uint8 {
		if x < 2 {
			return 0
		}
		return 255
	})
	if got := symmetry(split); got != 0 {
		t.Errorf("symmetry(split) = %v, want 0", got)
	}

	if got := symmetry(newGray(1, 5, func(int, int) uint8 { return 3 })); got != 1 {
		t.Errorf("symmetry(single column) = %v, want 1", got)
	}
}
