// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kozaktomas/faceauth/internal/database"
)

// MockPersister is an in-memory database.Persister.
// Saved documents are deep-copied so later mutations by the caller are not observed.
type MockPersister struct {
	mu    sync.Mutex
	doc   *database.StoreDocument
	saves int

	// Error injection
	LoadError error
	SaveError error
}

// NewMockPersister creates an empty mock persister.
func NewMockPersister() *MockPersister {
	return &MockPersister{}
}

// NewMockPersisterWith creates a mock persister that already holds doc.
func NewMockPersisterWith(doc *database.StoreDocument) *MockPersister {
	return &MockPersister{doc: clone(doc)}
}

// Load returns a copy of the last saved document.
func (m *MockPersister) Load(ctx context.Context) (*database.StoreDocument, error) {
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, database.ErrNotFound
	}
	return clone(m.doc), nil
}

// Save stores a copy of doc.
func (m *MockPersister) Save(ctx context.Context, doc *database.StoreDocument) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = clone(doc)
	m.saves++
	return nil
}

// Document returns a copy of the saved document, or nil.
func (m *MockPersister) Document() *database.StoreDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil
	}
	return clone(m.doc)
}

// SaveCount returns the number of successful saves.
func (m *MockPersister) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// clone deep-copies a document through its JSON form, the same path the file backend uses.
func clone(doc *database.StoreDocument) *database.StoreDocument {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("mock: marshal document: %v", err))
	}
	var out database.StoreDocument
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("mock: unmarshal document: %v", err))
	}
	if out.Users == nil {
		out.Users = make(map[string]*database.UserRecord)
	}
	return &out
}
