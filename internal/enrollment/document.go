package enrollment

import (
	"fmt"
	"slices"

	"github.com/kozaktomas/faceauth/internal/database"
)

// document converts the snapshot into its serialized form.
func (s *Snapshot) document() *database.StoreDocument {
	doc := database.NewStoreDocument(
		s.settings.AccuracyThreshold,
		s.settings.MinSamplesPerUser,
		s.settings.MaxSamplesPerUser,
	)
	for id, p := range s.profiles {
		doc.Users[id] = userRecord(p)
	}
	return doc
}

func userRecord(p *Profile) *database.UserRecord {
	rec := &database.UserRecord{
		EnrollmentDate:      p.EnrolledAt,
		AuthenticationCount: p.AuthenticationCount,
		Samples:             make([]database.SampleRecord, len(p.Samples)),
	}
	if p.LastAuthenticatedAt != nil {
		t := *p.LastAuthenticatedAt
		rec.LastAuthentication = &t
	}
	for i, smp := range p.Samples {
		rec.Samples[i] = database.SampleRecord{
			Descriptor: slices.Clone(smp.Descriptor),
			Confidence: smp.Confidence,
			Timestamp:  smp.CapturedAt,
			SampleID:   smp.ID,
		}
	}
	return rec
}

func profileFromRecord(userID string, rec *database.UserRecord) (*Profile, error) {
	if rec == nil {
		return nil, fmt.Errorf("user %s has no record", userID)
	}
	p := &Profile{
		UserID:              userID,
		EnrolledAt:          rec.EnrollmentDate.UTC(),
		AuthenticationCount: rec.AuthenticationCount,
		Samples:             make([]Sample, 0, len(rec.Samples)),
	}
	if rec.LastAuthentication != nil {
		t := rec.LastAuthentication.UTC()
		p.LastAuthenticatedAt = &t
	}
	for _, smp := range rec.Samples {
		if err := validateSample(smp.Descriptor, smp.Confidence); err != nil {
			return nil, fmt.Errorf("user %s sample %s: %w", userID, smp.SampleID, err)
		}
		p.Samples = append(p.Samples, Sample{
			ID:         smp.SampleID,
			Descriptor: slices.Clone(smp.Descriptor),
			Confidence: smp.Confidence,
			CapturedAt: smp.Timestamp.UTC(),
		})
	}
	return p, nil
}

func profilesFromDocument(doc *database.StoreDocument) (map[string]*Profile, error) {
	if doc.SchemaVersion > database.CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (newest known %d)",
			doc.SchemaVersion, database.CurrentSchemaVersion)
	}
	profiles := make(map[string]*Profile, len(doc.Users))
	for id, rec := range doc.Users {
		if err := validateUserID(id); err != nil {
			return nil, err
		}
		p, err := profileFromRecord(id, rec)
		if err != nil {
			return nil, err
		}
		profiles[id] = p
	}
	return profiles, nil
}
