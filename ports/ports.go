// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/domain/post"
)

// Store sentinels.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique attribute is already taken.
	ErrConflict = errors.New("already exists")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Random provides secure randomness.
type Random interface {
	Bytes(n int) ([]byte, error)
	String(n int) (string, error)
}

// Hasher hashes secrets such as API keys.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Compare(hash []byte, plaintext string) bool
}

// TokenService issues and validates bearer tokens.
type TokenService interface {
	GenerateToken(userID string, role identity.Role) (string, time.Time, error)
	ValidateToken(token string) (identity.Identity, error)
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// PostStore persists posts. It owns post lifecycle.
type PostStore interface {
	// Get retrieves a post by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id int64) (post.Post, error)

	// Create stores a new post and returns it with its assigned ID.
	Create(ctx context.Context, p post.Post) (post.Post, error)

	// Update modifies an existing post.
	Update(ctx context.Context, p post.Post) error

	// List returns posts ordered by ID.
	List(ctx context.Context, limit, offset int) ([]post.Post, error)

	// Count returns total post count.
	Count(ctx context.Context) (int, error)
}

// MetaStore is the per-resource attribute store: one text value per
// (post ID, key).
type MetaStore interface {
	// Get returns the stored value. ok is false when nothing is stored.
	Get(ctx context.Context, postID int64, key string) (value string, ok bool, err error)

	// Set stores the value, replacing any previous one. Writing an
	// unchanged value is not an error.
	Set(ctx context.Context, postID int64, key, value string) error

	// Delete removes the value. Deleting a missing value is not an error.
	Delete(ctx context.Context, postID int64, key string) error
}

// User is an account that can call the API.
type User struct {
	ID        string
	Email     string
	Name      string
	Role      identity.Role
	CreatedAt time.Time
}

// UserStore persists user accounts.
type UserStore interface {
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) error
	List(ctx context.Context) ([]User, error)
}

// KeyStore persists API keys.
type KeyStore interface {
	// Get retrieves keys matching a lookup prefix.
	Get(ctx context.Context, prefix string) ([]key.Key, error)

	// Create stores a new key.
	Create(ctx context.Context, k key.Key) error

	// Revoke marks a key as revoked.
	Revoke(ctx context.Context, id string, at time.Time) error
}

// -----------------------------------------------------------------------------
// Authorization Port
// -----------------------------------------------------------------------------

// Authorizer answers capability checks for a caller on a specific post.
type Authorizer interface {
	CanEditPost(ctx context.Context, caller identity.Identity, p post.Post) (bool, error)
}

// -----------------------------------------------------------------------------
// Observability Port
// -----------------------------------------------------------------------------

// FieldObserver receives field access outcomes, typically to export metrics.
type FieldObserver interface {
	FieldRead(name string)
	FieldWrite(name, result string)
	FieldDenied(name, op string)
}
