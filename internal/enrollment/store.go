// Package enrollment holds per-user face samples with bounded capacity.
//
// The store has a single writer: mutations are serialized and persisted
// before they become visible. Readers take an immutable Snapshot, so a match
// never observes a profile mid-mutation. A failed save leaves the previous
// snapshot in place, which is the rollback.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/logging"
	"go.uber.org/zap"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source. Times are stored in UTC with microsecond precision.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides sample id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Store is the enrollment store.
type Store struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	state *Snapshot

	persister database.Persister
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if math.IsNaN(s.AccuracyThreshold) || s.AccuracyThreshold <= 0 || s.AccuracyThreshold > 1 {
		return fmt.Errorf("%w: accuracy threshold must be in (0, 1], got %v", ErrInvalidSettings, s.AccuracyThreshold)
	}
	if s.MinSamplesPerUser < 1 {
		return fmt.Errorf("%w: min samples per user must be positive, got %d", ErrInvalidSettings, s.MinSamplesPerUser)
	}
	if s.MaxSamplesPerUser < s.MinSamplesPerUser {
		return fmt.Errorf("%w: max samples per user (%d) below min (%d)",
			ErrInvalidSettings, s.MaxSamplesPerUser, s.MinSamplesPerUser)
	}
	return nil
}

// Open loads the persisted store. A missing document yields an empty store.
// The given settings replace the persisted ones; they are written on the next mutation.
func Open(ctx context.Context, persister database.Persister, settings Settings, opts ...Option) (*Store, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		persister: persister,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	profiles := make(map[string]*Profile)
	doc, err := persister.Load(ctx)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.logger.Info("starting with empty enrollment store")
	case err != nil:
		return nil, logging.NewOperationError("enrollment.open", "", fmt.Errorf("%w: %w", ErrPersistence, err))
	default:
		profiles, err = profilesFromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("loading enrollment store: %w", err)
		}
		if doc.AccuracyThreshold != settings.AccuracyThreshold ||
			doc.MinSamplesPerUser != settings.MinSamplesPerUser ||
			doc.MaxSamplesPerUser != settings.MaxSamplesPerUser {
			s.logger.Info("configured settings override persisted settings",
				zap.Float64("persisted_threshold", doc.AccuracyThreshold),
				zap.Int("persisted_min_samples", doc.MinSamplesPerUser),
				zap.Int("persisted_max_samples", doc.MaxSamplesPerUser))
		}
	}

	s.state = newSnapshot(settings, profiles)
	s.logger.Info("enrollment store opened", zap.Int("users", len(profiles)))
	return s, nil
}

// Snapshot returns the current immutable view of the store.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Settings returns the active settings.
func (s *Store) Settings() Settings {
	return s.Snapshot().settings
}

// IsEnrolled reports whether userID has at least MinSamplesPerUser samples.
func (s *Store) IsEnrolled(userID string) bool {
	return s.Snapshot().IsEnrolled(userID)
}

// EnrollmentProgress returns the sample count of userID and the count required to be enrolled.
func (s *Store) EnrollmentProgress(userID string) (count, required int) {
	snap := s.Snapshot()
	if p, ok := snap.profiles[userID]; ok {
		count = len(p.Samples)
	}
	return count, snap.settings.MinSamplesPerUser
}

// Profile returns a copy of the profile for userID.
func (s *Store) Profile(userID string) (Profile, bool) {
	p, ok := s.Snapshot().Profile(userID)
	if !ok {
		return Profile{}, false
	}
	return *p.clone(), true
}

// AddSample appends a sample to userID, creating the profile on first use.
// When the profile exceeds the cap, only the highest-confidence samples are kept.
// The returned id identifies the new sample even if it was the one discarded.
func (s *Store) AddSample(ctx context.Context, userID string, descriptor []float64, confidence float64) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", err
	}
	if err := validateSample(descriptor, confidence); err != nil {
		return "", err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	profiles := cur.mutable()
	now := s.timestamp()

	var p *Profile
	if existing, ok := profiles[userID]; ok {
		p = existing.clone()
	} else {
		p = &Profile{UserID: userID, EnrolledAt: now, Samples: []Sample{}}
	}

	id := s.newID()
	p.Samples = append(p.Samples, Sample{
		ID:         id,
		Descriptor: slices.Clone(descriptor),
		Confidence: confidence,
		CapturedAt: now,
	})
	dropped := p.truncate(cur.settings.MaxSamplesPerUser)
	profiles[userID] = p

	if err := s.commit(ctx, "enrollment.add_sample", userID, cur.settings, profiles); err != nil {
		return "", err
	}

	logging.WithOperation(s.logger, "enrollment.add_sample", userID).Info("sample added",
		zap.String("sample_id", id),
		zap.Float64("confidence", confidence),
		zap.Int("samples", len(p.Samples)),
		zap.Int("dropped", dropped))
	return id, nil
}

// RecordAuthentication stamps a successful authentication of userID.
func (s *Store) RecordAuthentication(ctx context.Context, userID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	existing, ok := cur.profiles[userID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	p := existing.clone()
	now := s.timestamp()
	p.LastAuthenticatedAt = &now
	p.AuthenticationCount++

	profiles := cur.mutable()
	profiles[userID] = p
	if err := s.commit(ctx, "enrollment.record_authentication", userID, cur.settings, profiles); err != nil {
		return err
	}

	logging.WithOperation(s.logger, "enrollment.record_authentication", userID).Info("authentication recorded",
		zap.Int("authentication_count", p.AuthenticationCount))
	return nil
}

// Optimize trims every profile above the cap to its highest-confidence samples.
// It returns the number of samples removed and saves only when something was removed.
func (s *Store) Optimize(ctx context.Context) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	profiles := cur.mutable()
	removed := 0
	for _, id := range cur.userIDs {
		p := profiles[id]
		if len(p.Samples) <= cur.settings.MaxSamplesPerUser {
			continue
		}
		p = p.clone()
		removed += p.truncate(cur.settings.MaxSamplesPerUser)
		profiles[id] = p
	}
	if removed == 0 {
		return 0, nil
	}

	if err := s.commit(ctx, "enrollment.optimize", "", cur.settings, profiles); err != nil {
		return 0, err
	}

	logging.WithOperation(s.logger, "enrollment.optimize", "").Info("store optimized", zap.Int("removed", removed))
	return removed, nil
}

// RemoveUser deletes the profile of userID. It reports false when there was none.
func (s *Store) RemoveUser(ctx context.Context, userID string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	if _, ok := cur.profiles[userID]; !ok {
		return false, nil
	}

	profiles := cur.mutable()
	delete(profiles, userID)
	if err := s.commit(ctx, "enrollment.remove_user", userID, cur.settings, profiles); err != nil {
		return false, err
	}

	logging.WithOperation(s.logger, "enrollment.remove_user", userID).Info("user removed")
	return true, nil
}

// commit saves the candidate state and publishes it only when the save succeeded.
// Callers hold writeMu.
func (s *Store) commit(ctx context.Context, op, userID string, settings Settings, profiles map[string]*Profile) error {
	next := newSnapshot(settings, profiles)
	if err := s.persister.Save(ctx, next.document()); err != nil {
		logging.WithOperation(s.logger, op, userID).Error("persisting enrollment store failed", zap.Error(err))
		return logging.NewOperationError(op, userID, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return nil
}

func (s *Store) timestamp() time.Time {
	return normalizeTime(s.now())
}

// normalizeTime drops the monotonic reading and sub-microsecond precision
// so that every backend round-trips the value exactly.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	return nil
}

func validateSample(descriptor []float64, confidence float64) error {
	if len(descriptor) == 0 {
		return fmt.Errorf("%w: empty descriptor", ErrInvalidSample)
	}
	for i, v := range descriptor {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: descriptor value %d is not finite", ErrInvalidSample, i)
		}
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence must be in [0, 1], got %v", ErrInvalidSample, confidence)
	}
	return nil
}
