package key

import (
	"strings"
	"time"
)

// Check reports why a stored key cannot be used at now, or ReasonValid.
// This is a PURE function.
func Check(k Key, now time.Time) string {
	if k.RevokedAt != nil {
		return ReasonRevoked
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return ReasonExpired
	}
	return ReasonValid
}

// ValidateFormat checks a raw key's shape and returns its lookup prefix.
// This is a PURE function.
func ValidateFormat(rawKey, expectedPrefix string) (prefix string, ok bool) {
	if !strings.HasPrefix(rawKey, expectedPrefix) {
		return "", false
	}
	if len(rawKey) < len(expectedPrefix)+64 || len(rawKey) < LookupLen {
		return "", false
	}
	return rawKey[:LookupLen], true
}
