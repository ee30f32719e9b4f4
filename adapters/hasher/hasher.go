// Package hasher hashes API key secrets.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/artpar/postmeta/ports"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes a SHA-256 digest of the secret with bcrypt, which keeps
// secrets of any length under bcrypt's 72-byte input limit.
type Bcrypt struct {
	cost int
}

// NewBcrypt creates a bcrypt hasher. Out-of-range costs fall back to
// bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword(digest(plaintext), h.cost)
}

// Compare reports whether plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, digest(plaintext)) == nil
}

// Cost returns the configured work factor.
func (h *Bcrypt) Cost() int {
	return h.cost
}

func digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return []byte(hex.EncodeToString(sum[:]))
}

// Ensure interface compliance.
var _ ports.Hasher = (*Bcrypt)(nil)
