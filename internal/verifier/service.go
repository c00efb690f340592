// Package verifier composes preprocessing, extraction, the enrollment store
// and matching into the enrollment and authentication flows.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/zap"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/enrollment"
	"github.com/kozaktomas/faceauth/internal/facematch"
	"github.com/kozaktomas/faceauth/internal/features"
	"github.com/kozaktomas/faceauth/internal/imaging"
	"github.com/kozaktomas/faceauth/internal/logging"
)

var (
	// ErrLowConfidenceSample is returned when a sample fails the quality gate.
	// The store is not modified and the caller may retry with a better image.
	ErrLowConfidenceSample = errors.New("sample confidence below minimum")

	// ErrNoEnrolledUsers is returned by Authenticate when the store holds no samples.
	ErrNoEnrolledUsers = errors.New("no enrolled users")
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMinSampleConfidence sets the enrollment quality gate.
func WithMinSampleConfidence(v float64) Option {
	return func(s *Service) { s.minConfidence = v }
}

// WithMatcher replaces the default matcher.
func WithMatcher(m *facematch.Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

// WithRequireEnrolled controls whether only fully enrolled users can authenticate.
func WithRequireEnrolled(v bool) Option {
	return func(s *Service) { s.requireEnrolled = v }
}

// WithSampleSearcher makes Candidates query the backend instead of the in-memory index.
func WithSampleSearcher(searcher database.SampleSearcher) Option {
	return func(s *Service) { s.searcher = searcher }
}

// Service runs the enrollment and authentication flows.
type Service struct {
	preprocessor    *imaging.Preprocessor
	extractor       *features.Extractor
	store           *enrollment.Store
	matcher         *facematch.Matcher
	searcher        database.SampleSearcher
	minConfidence   float64
	requireEnrolled bool
	logger          *zap.Logger

	indexMu sync.Mutex
	index   *facematch.SampleIndex
}

// NewService creates a service over store.
func NewService(pre *imaging.Preprocessor, ext *features.Extractor, store *enrollment.Store, opts ...Option) *Service {
	s := &Service{
		preprocessor:    pre,
		extractor:       ext,
		store:           store,
		matcher:         facematch.NewMatcher(constants.WorkerPoolSize),
		minConfidence:   constants.DefaultMinSampleConfidence,
		requireEnrolled: true,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the enrollment store the service writes to.
func (s *Service) Store() *enrollment.Store {
	return s.store
}

// DescriptorLength is the length of every descriptor the service produces.
func (s *Service) DescriptorLength() int {
	return s.extractor.Length()
}

// Extraction is a descriptor together with the quality of the region it came from.
type Extraction struct {
	Descriptor []float64 `json:"descriptor"`
	Quality    float64   `json:"quality"`
}

// Extract preprocesses img and computes its descriptor.
func (s *Service) Extract(img *image.Gray) (Extraction, error) {
	canonical, quality, err := s.preprocessor.ProcessWithQuality(img)
	if err != nil {
		return Extraction{}, err
	}
	return Extraction{Descriptor: s.extractor.Extract(canonical), Quality: quality}, nil
}

// EnrollResult reports the state of a user after a sample was added.
type EnrollResult struct {
	UserID     string  `json:"user_id"`
	SampleID   string  `json:"sample_id"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
	Required   int     `json:"required"`
	Enrolled   bool    `json:"enrolled"`
}

// Enroll extracts a descriptor from img and adds it to userID's profile.
// When confidence is nil the region quality estimate is used instead.
func (s *Service) Enroll(ctx context.Context, userID string, img *image.Gray, confidence *float64) (EnrollResult, error) {
	log := logging.WithOperation(s.logger, "enroll", userID)

	ex, err := s.Extract(img)
	if err != nil {
		return EnrollResult{}, err
	}

	conf := ex.Quality
	if confidence != nil {
		conf = *confidence
	}
	if conf < s.minConfidence {
		log.Info("sample rejected", zap.Float64("confidence", conf), zap.Float64("min_confidence", s.minConfidence))
		return EnrollResult{}, fmt.Errorf("%w: %.3f < %.3f", ErrLowConfidenceSample, conf, s.minConfidence)
	}

	sampleID, err := s.store.AddSample(ctx, userID, ex.Descriptor, conf)
	if err != nil {
		return EnrollResult{}, err
	}

	count, required := s.store.EnrollmentProgress(userID)
	log.Info("sample enrolled", zap.String("sample_id", sampleID), zap.Int("samples", count), zap.Int("required", required))

	return EnrollResult{
		UserID:     userID,
		SampleID:   sampleID,
		Confidence: conf,
		Samples:    count,
		Required:   required,
		Enrolled:   count >= required,
	}, nil
}

// Authenticate identifies the user in img. A decision is returned whenever
// the store has samples; Authenticated tells whether it was accepted.
// Accepted authentications are recorded in the store.
func (s *Service) Authenticate(ctx context.Context, img *image.Gray) (facematch.Decision, error) {
	ex, err := s.Extract(img)
	if err != nil {
		return facematch.Decision{}, err
	}
	return s.AuthenticateDescriptor(ctx, ex.Descriptor)
}

// AuthenticateDescriptor is Authenticate for an already extracted descriptor.
func (s *Service) AuthenticateDescriptor(ctx context.Context, descriptor []float64) (facematch.Decision, error) {
	snap := s.store.Snapshot()
	best, ok := s.matcher.FindBestMatch(snap, descriptor)
	if !ok {
		return facematch.Decision{}, ErrNoEnrolledUsers
	}

	decision := facematch.Decide(snap, best)
	if s.requireEnrolled && !decision.Enrolled {
		decision.Authenticated = false
	}

	log := logging.WithOperation(s.logger, "authenticate", decision.UserID)
	log.Info("authentication decision",
		zap.Float64("score", decision.Score),
		zap.Float64("threshold", decision.Threshold),
		zap.Bool("enrolled", decision.Enrolled),
		zap.Bool("authenticated", decision.Authenticated))

	if decision.Authenticated {
		if err := s.store.RecordAuthentication(ctx, decision.UserID); err != nil {
			return decision, err
		}
	}
	return decision, nil
}

// Candidates returns the k enrolled samples nearest to the face in img.
func (s *Service) Candidates(ctx context.Context, img *image.Gray, k int) ([]facematch.Candidate, error) {
	ex, err := s.Extract(img)
	if err != nil {
		return nil, err
	}
	return s.CandidatesFor(ctx, ex.Descriptor, k)
}

// CandidatesFor returns the k enrolled samples nearest to descriptor.
func (s *Service) CandidatesFor(ctx context.Context, descriptor []float64, k int) ([]facematch.Candidate, error) {
	if k <= 0 {
		k = constants.DefaultSearchLimit
	}

	if s.searcher != nil {
		hits, err := s.searcher.NearestSamples(ctx, descriptor, k)
		if err != nil {
			return nil, fmt.Errorf("searching samples: %w", err)
		}
		out := make([]facematch.Candidate, 0, len(hits))
		for _, h := range hits {
			out = append(out, facematch.Candidate{
				UserID:     h.UserID,
				SampleID:   h.SampleID,
				Similarity: facematch.FromCosineDistance(h.Distance),
			})
		}
		facematch.SortCandidates(out)
		return out, nil
	}

	return s.sampleIndex().Search(descriptor, k), nil
}

// sampleIndex returns an index of the current snapshot, rebuilding it after mutations.
func (s *Service) sampleIndex() *facematch.SampleIndex {
	snap := s.store.Snapshot()

	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.index == nil || s.index.Snapshot() != snap {
		s.index = facematch.NewSampleIndex(snap, s.extractor.Length())
		s.logger.Debug("rebuilt sample index", zap.Int("samples", s.index.Len()))
	}
	return s.index
}
