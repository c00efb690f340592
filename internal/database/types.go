package database

import "time"

// CurrentSchemaVersion is written into every saved document.
const CurrentSchemaVersion = 1

// StoreDocument is the serialized form of the enrollment store.
type StoreDocument struct {
	SchemaVersion     int                    `json:"schemaVersion" cbor:"schemaVersion"`
	AccuracyThreshold float64                `json:"accuracyThreshold" cbor:"accuracyThreshold"`
	MinSamplesPerUser int                    `json:"minSamplesPerUser" cbor:"minSamplesPerUser"`
	MaxSamplesPerUser int                    `json:"maxSamplesPerUser" cbor:"maxSamplesPerUser"`
	Users             map[string]*UserRecord `json:"users" cbor:"users"`
}

// UserRecord is one enrolled identity.
type UserRecord struct {
	EnrollmentDate      time.Time      `json:"enrollmentDate" cbor:"enrollmentDate"`
	LastAuthentication  *time.Time     `json:"lastAuthentication,omitempty" cbor:"lastAuthentication,omitempty"`
	AuthenticationCount int            `json:"authenticationCount" cbor:"authenticationCount"`
	Samples             []SampleRecord `json:"samples" cbor:"samples"`
}

// SampleRecord is one enrolled face descriptor.
type SampleRecord struct {
	Descriptor []float64 `json:"descriptor" cbor:"descriptor"`
	Confidence float64   `json:"confidence" cbor:"confidence"`
	Timestamp  time.Time `json:"timestamp" cbor:"timestamp"`
	SampleID   string    `json:"sampleId" cbor:"sampleId"`
}

// SampleHit is a nearest-sample search result.
// Distance is the cosine distance, 0 for identical directions.
type SampleHit struct {
	UserID   string
	SampleID string
	Distance float64
}

// NewStoreDocument returns an empty document with the given settings.
func NewStoreDocument(threshold float64, minSamples, maxSamples int) *StoreDocument {
	return &StoreDocument{
		SchemaVersion:     CurrentSchemaVersion,
		AccuracyThreshold: threshold,
		MinSamplesPerUser: minSamples,
		MaxSamplesPerUser: maxSamples,
		Users:             make(map[string]*UserRecord),
	}
}

// normalize fills nil collections so decoded documents compare equal to saved ones.
func (d *StoreDocument) normalize() {
	if d.Users == nil {
		d.Users = make(map[string]*UserRecord)
	}
	for _, u := range d.Users {
		if u.Samples == nil {
			u.Samples = []SampleRecord{}
		}
		u.EnrollmentDate = u.EnrollmentDate.UTC()
		if u.LastAuthentication != nil {
			t := u.LastAuthentication.UTC()
			u.LastAuthentication = &t
		}
		for i := range u.Samples {
			u.Samples[i].Timestamp = u.Samples[i].Timestamp.UTC()
			if u.Samples[i].Descriptor == nil {
				u.Samples[i].Descriptor = []float64{}
			}
		}
	}
}
