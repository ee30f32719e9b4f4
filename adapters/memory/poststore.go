package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
)

// PostStore is an in-memory implementation of ports.PostStore. IDs are
// assigned sequentially from 1.
type PostStore struct {
	mu     sync.RWMutex
	posts  map[int64]post.Post
	nextID int64
}

// NewPostStore creates a new in-memory post store.
func NewPostStore() *PostStore {
	return &PostStore{
		posts:  make(map[int64]post.Post),
		nextID: 1,
	}
}

// Get retrieves a post by ID.
func (s *PostStore) Get(ctx context.Context, id int64) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return post.Post{}, ErrNotFound
	}
	return p, nil
}

// Create stores p. A zero ID is assigned the next sequence value; an
// explicit ID is kept and advances the sequence past it.
func (s *PostStore) Create(ctx context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID
	}
	if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	s.posts[p.ID] = p
	return p, nil
}

// Update modifies an existing post.
func (s *PostStore) Update(ctx context.Context, p post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[p.ID]; !ok {
		return ErrNotFound
	}
	s.posts[p.ID] = p
	return nil
}

// List returns posts ordered by ID.
func (s *PostStore) List(ctx context.Context, limit, offset int) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]post.Post, 0, len(s.posts))
	for _, p := range s.posts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Count returns total post count.
func (s *PostStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts), nil
}

// Ensure interface compliance.
var _ ports.PostStore = (*PostStore)(nil)
