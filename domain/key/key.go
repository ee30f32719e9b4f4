// Package key provides API key value types and pure validation functions.
// This package has NO dependencies on I/O.
package key

import (
	"encoding/hex"
	"time"
)

// DefaultPrefix starts every raw key issued by this service.
const DefaultPrefix = "pm_"

// LookupLen is the number of leading raw-key characters stored in clear for lookup.
const LookupLen = 12

// Key is a stored API key (immutable value type). Only the hash of the
// secret is kept.
type Key struct {
	ID        string
	UserID    string
	Hash      []byte
	Prefix    string
	Name      string
	ExpiresAt *time.Time // nil = never expires
	RevokedAt *time.Time // nil = not revoked
	CreatedAt time.Time
}

// Reasons for validation failure.
const (
	ReasonValid     = ""
	ReasonNotFound  = "key_not_found"
	ReasonExpired   = "key_expired"
	ReasonRevoked   = "key_revoked"
	ReasonBadFormat = "invalid_format"
)

// EntropyLen is the number of random bytes behind a raw key.
const EntropyLen = 32

// Format builds a raw key from prefix and entropy: the prefix followed by
// the entropy in hex. The caller hashes it before storing.
func Format(prefix string, entropy []byte) string {
	return prefix + hex.EncodeToString(entropy)
}

// New builds the stored form of a freshly generated raw key.
func New(id, userID, name, rawKey string, hash []byte, now time.Time) Key {
	return Key{
		ID:        id,
		UserID:    userID,
		Hash:      hash,
		Prefix:    rawKey[:LookupLen],
		Name:      name,
		CreatedAt: now,
	}
}

// WithExpiry returns a copy of the key expiring at t.
func (k Key) WithExpiry(t time.Time) Key {
	k.ExpiresAt = &t
	return k
}
