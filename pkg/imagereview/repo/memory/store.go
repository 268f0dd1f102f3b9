// Package memory provides an in-memory imagereview.RecordStore for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/image-review/pkg/imagereview"
)

// Store implements imagereview.RecordStore using in-memory storage.
type Store struct {
	mu      sync.RWMutex
	records map[string]*imagereview.ImageRecord
}

// New creates a new in-memory record store.
func New() *Store {
	return &Store{records: make(map[string]*imagereview.ImageRecord)}
}

// Put writes a record unconditionally.
func (s *Store) Put(ctx context.Context, record *imagereview.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications.
	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// UpdateFields sets the named fields in one step, creating the record when
// it is absent, matching the cloud backend's upsert semantics.
func (s *Store) UpdateFields(ctx context.Context, id string, fields map[imagereview.RecordField]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[id]
	if !exists {
		record = &imagereview.ImageRecord{ID: id}
		s.records[id] = record
	}
	for field, value := range fields {
		record.SetField(field, value)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*imagereview.ImageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[id]
	if !exists {
		return nil, imagereview.ErrRecordNotFound
	}
	// Return a copy to prevent external modifications.
	recordCopy := *record
	return &recordCopy, nil
}
