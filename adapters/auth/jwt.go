// Package auth issues and checks the HS256 bearer tokens that identify
// API callers.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/ports"
	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer     = "postmeta"
	defaultTTL = 24 * time.Hour
)

// ErrNoIdentity is returned for a well-signed token that does not name a
// usable user and role.
var ErrNoIdentity = errors.New("token carries no valid identity")

// Claims are the JWT claims carried by a bearer token.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService is stateless; any instance sharing the secret accepts
// tokens issued by another.
type TokenService struct {
	key    []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService signs with secret. An empty secret is replaced by 32
// random bytes, which means tokens die with the process. A zero ttl
// means a day.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	s := &TokenService{key: key, ttl: ttl, now: time.Now}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	return s
}

// GenerateToken signs a token for userID acting as role and reports when
// it expires.
func (s *TokenService) GenerateToken(userID string, role identity.Role) (string, time.Time, error) {
	issued := s.now().UTC()
	expires := issued.Add(s.ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken checks signature, issuer and expiry, then maps the claims
// to a caller. Any failure yields identity.Anonymous.
func (s *TokenService) ValidateToken(raw string) (identity.Identity, error) {
	var claims Claims
	if _, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}); err != nil {
		return identity.Anonymous, err
	}

	role := identity.Role(claims.Role)
	if claims.UserID == "" || !role.Valid() {
		return identity.Anonymous, ErrNoIdentity
	}
	return identity.Identity{UserID: claims.UserID, Role: role}, nil
}

var _ ports.TokenService = (*TokenService)(nil)
