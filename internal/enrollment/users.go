package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/faceauth/internal/constants"
	"github.com/kozaktomas/faceauth/internal/database"
	"github.com/kozaktomas/faceauth/internal/logging"
	"go.uber.org/zap"
)

// UserSummary describes one profile for listings.
type UserSummary struct {
	UserID              string     `json:"user_id"`
	SampleCount         int        `json:"sample_count"`
	RequiredSamples     int        `json:"required_samples"`
	Enrolled            bool       `json:"enrolled"`
	EnrolledAt          time.Time  `json:"enrolled_at"`
	LastAuthenticatedAt *time.Time `json:"last_authenticated_at,omitempty"`
	AuthenticationCount int        `json:"authentication_count"`
	AverageConfidence   float64    `json:"average_confidence"`
}

// Stats aggregates the whole store.
type Stats struct {
	Users         int `json:"users"`
	EnrolledUsers int `json:"enrolled_users"`
	Samples       int `json:"samples"`
}

// Summary describes userID.
func (s *Snapshot) Summary(userID string) (UserSummary, bool) {
	p, ok := s.profiles[userID]
	if !ok {
		return UserSummary{}, false
	}
	sum := UserSummary{
		UserID:              userID,
		SampleCount:         len(p.Samples),
		RequiredSamples:     s.settings.MinSamplesPerUser,
		Enrolled:            len(p.Samples) >= s.settings.MinSamplesPerUser,
		EnrolledAt:          p.EnrolledAt,
		AuthenticationCount: p.AuthenticationCount,
		AverageConfidence:   p.AverageConfidence(),
	}
	if p.LastAuthenticatedAt != nil {
		t := *p.LastAuthenticatedAt
		sum.LastAuthenticatedAt = &t
	}
	return sum, true
}

// ListUsers returns a summary per user sorted by user id.
func (s *Store) ListUsers() []UserSummary {
	snap := s.Snapshot()
	out := make([]UserSummary, 0, snap.Len())
	for _, id := range snap.userIDs {
		sum, _ := snap.Summary(id)
		out = append(out, sum)
	}
	return out
}

// Stats counts users, enrolled users and samples.
func (s *Store) Stats() Stats {
	snap := s.Snapshot()
	st := Stats{Users: snap.Len()}
	for _, p := range snap.profiles {
		st.Samples += len(p.Samples)
		if len(p.Samples) >= snap.settings.MinSamplesPerUser {
			st.EnrolledUsers++
		}
	}
	return st
}

// UserExport is the portable single-user document used to move credentials between stores.
type UserExport struct {
	UserID     string               `json:"user_id"`
	UserData   *database.UserRecord `json:"user_data"`
	ExportedAt time.Time            `json:"exported_at"`
	Version    string               `json:"version"`
}

// ExportUser returns the portable document for userID.
func (s *Store) ExportUser(userID string) (*UserExport, error) {
	p, ok := s.Snapshot().Profile(userID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	return &UserExport{
		UserID:     userID,
		UserData:   userRecord(p),
		ExportedAt: s.timestamp(),
		Version:    constants.ExportVersion,
	}, nil
}

// ImportUser adds the exported profile to the store. An existing profile is
// replaced only when overwrite is set. Samples must share one descriptor length;
// missing sample ids are generated and the cap is applied.
func (s *Store) ImportUser(ctx context.Context, exp *UserExport, overwrite bool) error {
	if exp == nil || exp.UserData == nil {
		return fmt.Errorf("%w: export has no user data", ErrInvalidSample)
	}
	if exp.Version != "" && exp.Version != constants.ExportVersion {
		return fmt.Errorf("unsupported export version %q", exp.Version)
	}
	if err := validateUserID(exp.UserID); err != nil {
		return err
	}

	p, err := profileFromRecord(exp.UserID, exp.UserData)
	if err != nil {
		return err
	}
	if err := s.prepareImported(p); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	if _, exists := cur.profiles[exp.UserID]; exists && !overwrite {
		return fmt.Errorf("%w: %s", ErrUserExists, exp.UserID)
	}

	dropped := p.truncate(cur.settings.MaxSamplesPerUser)
	profiles := cur.mutable()
	profiles[exp.UserID] = p
	if err := s.commit(ctx, "enrollment.import_user", exp.UserID, cur.settings, profiles); err != nil {
		return err
	}

	logging.WithOperation(s.logger, "enrollment.import_user", exp.UserID).Info("user imported",
		zap.Int("samples", len(p.Samples)),
		zap.Int("dropped", dropped),
		zap.Bool("overwrite", overwrite))
	return nil
}

func (s *Store) prepareImported(p *Profile) error {
	if len(p.Samples) == 0 {
		return fmt.Errorf("%w: export of %s has no samples", ErrInvalidSample, p.UserID)
	}
	length := len(p.Samples[0].Descriptor)
	seen := make(map[string]bool, len(p.Samples))
	for i := range p.Samples {
		smp := &p.Samples[i]
		if len(smp.Descriptor) != length {
			return fmt.Errorf("%w: sample %d has %d values, expected %d",
				ErrInvalidSample, i, len(smp.Descriptor), length)
		}
		if smp.ID == "" || seen[smp.ID] {
			smp.ID = s.newID()
		}
		seen[smp.ID] = true
		smp.CapturedAt = normalizeTime(smp.CapturedAt)
	}

	if p.EnrolledAt.IsZero() {
		p.EnrolledAt = s.timestamp()
	} else {
		p.EnrolledAt = normalizeTime(p.EnrolledAt)
	}
	if p.LastAuthenticatedAt != nil {
		t := normalizeTime(*p.LastAuthenticatedAt)
		p.LastAuthenticatedAt = &t
	}
	return nil
}
