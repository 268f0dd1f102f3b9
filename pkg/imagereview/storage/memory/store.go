// Package memory provides an in-memory imagereview.ObjectStore for tests and
// local development.
package memory

import (
	"context"
	"sync"
)

// Store is an in-memory implementation of the imagereview.ObjectStore
// interface. It also offers Put and Exists so tests can stage and inspect
// objects.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte // "bucket/key" -> data
}

// New creates a new in-memory object store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func objectID(bucket, key string) string {
	return bucket + "/" + key
}

// Put stages an object.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectID(bucket, key)] = append([]byte(nil), data...)
	return nil
}

// Delete removes an object. Deleting an absent object is not an error.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectID(bucket, key))
	return nil
}

// Exists reports whether an object is present.
func (s *Store) Exists(bucket, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.objects[objectID(bucket, key)]
	return exists
}
