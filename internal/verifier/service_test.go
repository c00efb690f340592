package verifier

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/database/mock"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/features"
	"github.com/kozaktomas/faceauth/internal/imaging"
)

var testSettings = enrollment.Settings{AccuracyThreshold: 0.85, MinSamplesPerUser: 3, MaxSamplesPerUser: 10}

func newTestService(t *testing.T, p database.Persister, opts ...Option) *Service {
	t.Helper()
	pre, err := imaging.NewPreprocessor(imaging.DefaultOptions())
	if err != nil {
		t.Fatalf("NewPreprocessor failed: %v", err)
	}
	ext, err := features.NewExtractor(features.DefaultOptions())
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	store, err := enrollment.Open(context.Background(), p, testSettings)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return NewService(pre, ext, store, opts...)
}

// gradientImage is a diagonal gradient with a bright square near the center.
func gradientImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8((x + 2*y) % 256)
			if x > w/2-20 && x < w/2+10 && y > h/2-15 && y < h/2+25 {
				v = 240
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// stripeImage has vertical stripes of alternating intensity.
func stripeImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(40)
			if (x/7)%2 == 0 {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func flatImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func ptr(v float64) *float64 { return &v }

func TestExtract(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())

	ex, err := svc.Extract(gradientImage(400, 300))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(ex.Descriptor) != svc.DescriptorLength() {
		t.Errorf("descriptor length = %d, want %d", len(ex.Descriptor), svc.DescriptorLength())
	}
	var norm float64
	for _, v := range ex.Descriptor {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-9 {
		t.Errorf("descriptor norm = %v, want 1", math.Sqrt(norm))
	}
	if ex.Quality <= 0 || ex.Quality > 1 {
		t.Errorf("quality = %v, want (0, 1]", ex.Quality)
	}
}

func TestExtract_InvalidRegion(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())
	_, err := svc.Extract(image.NewGray(image.Rect(0, 0, 0, 0)))
	if !errors.Is(err, imaging.ErrInvalidRegion) {
		t.Errorf("error = %v, want ErrInvalidRegion", err)
	}
}

func TestEnroll_UntilEnrolled(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())
	ctx := context.Background()
	img := gradientImage(400, 300)

	for i := 1; i <= 3; i++ {
		res, err := svc.Enroll(ctx, "alice", img, ptr(0.9))
		if err != nil {
			t.Fatalf("Enroll #%d failed: %v", i, err)
		}
		if res.Samples != i || res.Required != 3 {
			t.Errorf("progress = %d/%d, want %d/3", res.Samples, res.Required, i)
		}
		if res.Enrolled != (i == 3) {
			t.Errorf("enrolled = %v after %d samples", res.Enrolled, i)
		}
		if res.SampleID == "" {
			t.Error("empty sample id")
		}
	}
}

func TestEnroll_QualityGate(t *testing.T) {
	p := mock.NewMockPersister()
	svc := newTestService(t, p)
	ctx := context.Background()

	tests := []struct {
		name       string
		img        *image.Gray
		confidence *float64
	}{
		{name: "flat image quality", img: flatImage(300, 300, 128)},
		{name: "explicit low confidence", img: gradientImage(300, 300), confidence: ptr(0.1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Enroll(ctx, "alice", tt.img, tt.confidence)
			if !errors.Is(err, ErrLowConfidenceSample) {
				t.Errorf("error = %v, want ErrLowConfidenceSample", err)
			}
		})
	}

	if _, ok := svc.Store().Profile("alice"); ok {
		t.Error("rejected samples must not create a profile")
	}
	if p.SaveCount() != 0 {
		t.Errorf("SaveCount = %d, want 0", p.SaveCount())
	}
}

func TestEnroll_PersistenceFailure(t *testing.T) {
	p := mock.NewMockPersister()
	p.SaveError = errors.New("disk full")
	svc := newTestService(t, p)

	_, err := svc.Enroll(context.Background(), "alice", gradientImage(300, 300), ptr(0.9))
	if !errors.Is(err, enrollment.ErrPersistence) {
		t.Errorf("error = %v, want ErrPersistence", err)
	}
	if svc.Store().Snapshot().Len() != 0 {
		t.Error("failed enrollment left a profile behind")
	}
}

func TestAuthenticate_NoEnrolledUsers(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())
	_, err := svc.Authenticate(context.Background(), gradientImage(300, 300))
	if !errors.Is(err, ErrNoEnrolledUsers) {
		t.Errorf("error = %v, want ErrNoEnrolledUsers", err)
	}
}

func TestAuthenticate_AcceptsEnrolledUser(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())
	ctx := context.Background()
	alice := gradientImage(400, 300)

	for range 3 {
		if _, err := svc.Enroll(ctx, "alice", alice, ptr(0.9)); err != nil {
			t.Fatalf("Enroll failed: %v", err)
		}
	}
	if _, err := svc.Enroll(ctx, "bob", stripeImage(400, 300), ptr(0.9)); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	d, err := svc.Authenticate(ctx, alice)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if d.UserID != "alice" || !d.Authenticated {
		t.Fatalf("decision = %+v, want alice authenticated", d)
	}
	if math.Abs(d.Score-1) > 1e-6 {
		t.Errorf("score = %v, want 1", d.Score)
	}

	prof, _ := svc.Store().Profile("alice")
	if prof.AuthenticationCount != 1 || prof.LastAuthenticatedAt == nil {
		t.Errorf("authentication not recorded: %+v", prof)
	}
}

func TestAuthenticate_RequiresEnrollment(t *testing.T) {
	ctx := context.Background()
	img := gradientImage(400, 300)

	tests := []struct {
		name            string
		requireEnrolled bool
		authenticated   bool
	}{
		{name: "required", requireEnrolled: true, authenticated: false},
		{name: "not required", requireEnrolled: false, authenticated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, mock.NewMockPersister(), WithRequireEnrolled(tt.requireEnrolled))
			if _, err := svc.Enroll(ctx, "alice", img, ptr(0.9)); err != nil {
				t.Fatalf("Enroll failed: %v", err)
			}

			d, err := svc.Authenticate(ctx, img)
			if err != nil {
				t.Fatalf("Authenticate failed: %v", err)
			}
			if d.Enrolled {
				t.Error("single sample user reported enrolled")
			}
			if d.Authenticated != tt.authenticated {
				t.Errorf("authenticated = %v, want %v", d.Authenticated, tt.authenticated)
			}

			prof, _ := svc.Store().Profile("alice")
			if want := map[bool]int{true: 1, false: 0}[tt.authenticated]; prof.AuthenticationCount != want {
				t.Errorf("authentication count = %d, want %d", prof.AuthenticationCount, want)
			}
		})
	}
}

func TestCandidates_InMemoryIndex(t *testing.T) {
	svc := newTestService(t, mock.NewMockPersister())
	ctx := context.Background()
	alice := gradientImage(400, 300)

	if _, err := svc.Enroll(ctx, "alice", alice, ptr(0.9)); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	if _, err := svc.Enroll(ctx, "bob", stripeImage(400, 300), ptr(0.9)); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}

	got, err := svc.Candidates(ctx, alice, 1)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(got) != 1 || got[0].UserID != "alice" {
		t.Fatalf("candidates = %+v, want alice", got)
	}
	if math.Abs(got[0].Similarity-1) > 1e-6 {
		t.Errorf("similarity = %v, want 1", got[0].Similarity)
	}

	// index follows new snapshots
	if _, err := svc.Enroll(ctx, "carol", alice, ptr(0.9)); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	got, err = svc.Candidates(ctx, alice, 5)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d candidates, want 3", len(got))
	}
}

type stubSearcher struct {
	hits  []database.SampleHit
	err   error
	query []float64
	k     int
}

func (s *stubSearcher) NearestSamples(ctx context.Context, query []float64, k int) ([]database.SampleHit, error) {
	s.query, s.k = query, k
	return s.hits, s.err
}

func TestCandidatesFor_Searcher(t *testing.T) {
	searcher := &stubSearcher{hits: []database.SampleHit{
		{UserID: "bob", SampleID: "b1", Distance: 0.5},
		{UserID: "alice", SampleID: "a1", Distance: 0},
	}}
	svc := newTestService(t, mock.NewMockPersister(), WithSampleSearcher(searcher))

	got, err := svc.CandidatesFor(context.Background(), []float64{1, 0}, 0)
	if err != nil {
		t.Fatalf("CandidatesFor failed: %v", err)
	}
	if searcher.k != 5 {
		t.Errorf("k = %d, want default 5", searcher.k)
	}
	if len(got) != 2 || got[0].UserID != "alice" || got[0].Similarity != 1 {
		t.Errorf("candidates = %+v", got)
	}

	searcher.err = errors.New("connection refused")
	if _, err := svc.CandidatesFor(context.Background(), []float64{1, 0}, 3); err == nil {
		t.Error("expected searcher error")
	}
}
