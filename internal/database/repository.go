package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("store document not found")

// DocumentReader loads the persisted enrollment store.
type DocumentReader interface {
	// Load returns the saved document or ErrNotFound
	Load(ctx context.Context) (*StoreDocument, error)
}

// DocumentWriter replaces the persisted enrollment store.
type DocumentWriter interface {
	// Save atomically replaces the saved document
	Save(ctx context.Context, doc *StoreDocument) error
}

// Persister is the durable collaborator of the enrollment store.
type Persister interface {
	DocumentReader
	DocumentWriter
}

// SampleSearcher is implemented by backends that can search descriptors natively.
type SampleSearcher interface {
	// NearestSamples returns up to k samples closest to query by cosine distance
	NearestSamples(ctx context.Context, query []float64, k int) ([]SampleHit, error)
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}
