// Package memory provides in-memory implementations of the store ports,
// used by tests and by the memory database driver.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/ports"
)

// ErrNotFound is returned when an entity is not found.
var ErrNotFound = ports.ErrNotFound

// UserStore is an in-memory implementation of ports.UserStore.
type UserStore struct {
	mu      sync.RWMutex
	users   map[string]ports.User
	byEmail map[string]string // email -> ID
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:   make(map[string]ports.User),
		byEmail: make(map[string]string),
	}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(_ context.Context, id string) (ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(id)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(_ context.Context, email string) (ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(s.byEmail[email])
}

func (s *UserStore) lookup(id string) (ports.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return ports.User{}, ErrNotFound
}

// Create stores a new user. A taken email or ID returns ports.ErrConflict.
func (s *UserStore) Create(_ context.Context, u ports.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return fmt.Errorf("%w: email %s", ports.ErrConflict, u.Email)
	}
	if _, taken := s.users[u.ID]; taken {
		return fmt.Errorf("%w: user %s", ports.ErrConflict, u.ID)
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

// List returns all users ordered by creation time, then ID.
func (s *UserStore) List(_ context.Context) ([]ports.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]ports.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b ports.User) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return users, nil
}

// KeyStore is an in-memory implementation of ports.KeyStore, indexed by
// lookup prefix.
type KeyStore struct {
	mu       sync.RWMutex
	byID     map[string]key.Key
	byPrefix map[string][]string // prefix -> IDs
}

// NewKeyStore creates a new in-memory key store.
func NewKeyStore() *KeyStore {
	return &KeyStore{
		byID:     make(map[string]key.Key),
		byPrefix: make(map[string][]string),
	}
}

// Get returns the keys whose lookup prefix is prefix.
func (s *KeyStore) Get(_ context.Context, prefix string) ([]key.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPrefix[prefix]
	keys := make([]key.Key, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.byID[id])
	}
	return keys, nil
}

// Create stores a new key.
func (s *KeyStore) Create(_ context.Context, k key.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byID[k.ID]; taken {
		return fmt.Errorf("%w: key %s", ports.ErrConflict, k.ID)
	}
	s.byID[k.ID] = k
	s.byPrefix[k.Prefix] = append(s.byPrefix[k.Prefix], k.ID)
	return nil
}

// Revoke stamps the key with at. Revoking twice keeps the first time.
func (s *KeyStore) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if k.RevokedAt == nil {
		k.RevokedAt = &at
		s.byID[id] = k
	}
	return nil
}

var (
	_ ports.UserStore = (*UserStore)(nil)
	_ ports.KeyStore  = (*KeyStore)(nil)
)
