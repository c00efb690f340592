package enrollment

import (
	"slices"
	"sort"
	"time"
)

// Sample is one enrolled face descriptor.
type Sample struct {
	ID         string
	Descriptor []float64
	Confidence float64
	CapturedAt time.Time
}

// Profile is an enrolled identity. Profiles reachable from a Snapshot are
// shared and must not be modified.
type Profile struct {
	UserID              string
	Samples             []Sample
	EnrolledAt          time.Time
	LastAuthenticatedAt *time.Time
	AuthenticationCount int
}

// AverageConfidence is the mean enrollment confidence, 0 without samples.
func (p *Profile) AverageConfidence() float64 {
	if len(p.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range p.Samples {
		sum += s.Confidence
	}
	return sum / float64(len(p.Samples))
}

// clone copies the profile and its sample slice. Descriptors are shared
// because they are never written after creation.
func (p *Profile) clone() *Profile {
	out := *p
	out.Samples = slices.Clone(p.Samples)
	if p.LastAuthenticatedAt != nil {
		t := *p.LastAuthenticatedAt
		out.LastAuthenticatedAt = &t
	}
	return &out
}

// truncate keeps the max highest-confidence samples and returns how many were dropped.
// Samples are only reordered when the cap is exceeded; equal confidences keep insertion order.
func (p *Profile) truncate(maxSamples int) int {
	if len(p.Samples) <= maxSamples {
		return 0
	}
	sort.SliceStable(p.Samples, func(i, j int) bool {
		return p.Samples[i].Confidence > p.Samples[j].Confidence
	})
	removed := len(p.Samples) - maxSamples
	p.Samples = p.Samples[:maxSamples:maxSamples]
	return removed
}

// Settings are the store-wide enrollment parameters.
type Settings struct {
	AccuracyThreshold float64
	MinSamplesPerUser int
	MaxSamplesPerUser int
}

// Snapshot is an immutable view of the store at one point in time.
// Matches run against a snapshot and never observe a mutation in progress.
type Snapshot struct {
	settings Settings
	profiles map[string]*Profile
	userIDs  []string
}

func newSnapshot(settings Settings, profiles map[string]*Profile) *Snapshot {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &Snapshot{settings: settings, profiles: profiles, userIDs: ids}
}

// Settings returns the store settings.
func (s *Snapshot) Settings() Settings {
	return s.settings
}

// Len is the number of profiles.
func (s *Snapshot) Len() int {
	return len(s.userIDs)
}

// UserIDs returns all user ids in ascending order. The slice must not be modified.
func (s *Snapshot) UserIDs() []string {
	return s.userIDs
}

// Profile returns the shared profile for userID.
func (s *Snapshot) Profile(userID string) (*Profile, bool) {
	p, ok := s.profiles[userID]
	return p, ok
}

// IsEnrolled reports whether userID has at least MinSamplesPerUser samples.
func (s *Snapshot) IsEnrolled(userID string) bool {
	p, ok := s.profiles[userID]
	return ok && len(p.Samples) >= s.settings.MinSamplesPerUser
}

// mutable returns a copy whose profile map can be modified. Profiles
// themselves stay shared until replaced with a clone.
func (s *Snapshot) mutable() map[string]*Profile {
	m := make(map[string]*Profile, len(s.profiles))
	for k, v := range s.profiles {
		m[k] = v
	}
	return m
}
