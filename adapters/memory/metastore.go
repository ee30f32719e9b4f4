package memory

import (
	"context"
	"sync"

	"github.com/artpar/postmeta/ports"
)

type metaKey struct {
	postID int64
	key    string
}

// MetaStore is an in-memory implementation of ports.MetaStore.
type MetaStore struct {
	mu     sync.RWMutex
	values map[metaKey]string
}

// NewMetaStore creates a new in-memory meta store.
func NewMetaStore() *MetaStore {
	return &MetaStore{
		values: make(map[metaKey]string),
	}
}

// Get returns the value stored under (postID, key).
func (s *MetaStore) Get(ctx context.Context, postID int64, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[metaKey{postID, key}]
	return v, ok, nil
}

// Set stores value under (postID, key).
func (s *MetaStore) Set(ctx context.Context, postID int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[metaKey{postID, key}] = value
	return nil
}

// Delete removes the value under (postID, key).
func (s *MetaStore) Delete(ctx context.Context, postID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, metaKey{postID, key})
	return nil
}

// Len returns the number of stored values (for testing).
func (s *MetaStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Ensure interface compliance.
var _ ports.MetaStore = (*MetaStore)(nil)
