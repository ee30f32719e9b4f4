package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/ports"
	"github.com/rs/zerolog"
)

// AuthService resolves request credentials into caller identities and
// manages the users and keys behind them.
type AuthService struct {
	users     ports.UserStore
	keys      ports.KeyStore
	tokens    ports.TokenService
	hasher    ports.Hasher
	clock     ports.Clock
	idGen     ports.IDGenerator
	random    ports.Random
	keyPrefix string
	logger    zerolog.Logger
}

// AuthDeps contains dependencies for AuthService.
type AuthDeps struct {
	Users     ports.UserStore
	Keys      ports.KeyStore
	Tokens    ports.TokenService
	Hasher    ports.Hasher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Random    ports.Random
	KeyPrefix string
	Logger    zerolog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(deps AuthDeps) *AuthService {
	prefix := deps.KeyPrefix
	if prefix == "" {
		prefix = key.DefaultPrefix
	}
	return &AuthService{
		users:     deps.Users,
		keys:      deps.Keys,
		tokens:    deps.Tokens,
		hasher:    deps.Hasher,
		clock:     deps.Clock,
		idGen:     deps.IDGen,
		random:    deps.Random,
		keyPrefix: prefix,
		logger:    deps.Logger,
	}
}

// Resolve returns the caller for a request. An API key takes precedence over
// a bearer token; with neither the caller is anonymous.
func (s *AuthService) Resolve(ctx context.Context, apiKey, bearer string) (identity.Identity, error) {
	switch {
	case apiKey != "":
		return s.resolveKey(ctx, apiKey)
	case bearer != "":
		if s.tokens == nil {
			return identity.Anonymous, unauthorized("Bearer tokens are not enabled.")
		}
		id, err := s.tokens.ValidateToken(bearer)
		if err != nil {
			s.logger.Debug().Err(err).Msg("bearer token rejected")
			return identity.Anonymous, unauthorized("Invalid or expired token.")
		}
		return id, nil
	}
	return identity.Anonymous, nil
}

func (s *AuthService) resolveKey(ctx context.Context, rawKey string) (identity.Identity, error) {
	prefix, ok := key.ValidateFormat(rawKey, s.keyPrefix)
	if !ok {
		return identity.Anonymous, unauthorized("Invalid API key.")
	}

	candidates, err := s.keys.Get(ctx, prefix)
	if err != nil {
		return identity.Anonymous, fmt.Errorf("lookup key: %w", err)
	}

	for _, k := range candidates {
		if !s.hasher.Compare(k.Hash, rawKey) {
			continue
		}
		if reason := key.Check(k, s.clock.Now()); reason != key.ReasonValid {
			s.logger.Debug().Str("key_id", k.ID).Str("reason", reason).Msg("api key rejected")
			return identity.Anonymous, unauthorized("Invalid or expired API key.")
		}

		u, err := s.users.Get(ctx, k.UserID)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return identity.Anonymous, unauthorized("Invalid API key.")
			}
			return identity.Anonymous, fmt.Errorf("get user: %w", err)
		}
		return identity.Identity{UserID: u.ID, Role: u.Role}, nil
	}

	return identity.Anonymous, unauthorized("Invalid API key.")
}

// CreateUser stores a new user account.
func (s *AuthService) CreateUser(ctx context.Context, email, name string, role identity.Role) (ports.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return ports.User{}, invalidParam("email", "a valid email is required")
	}
	if !role.Valid() {
		return ports.User{}, invalidParam("role", "unknown role")
	}

	u := ports.User{
		ID:        s.idGen.New(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ports.ErrConflict) {
			return ports.User{}, &Error{Kind: KindConflict, Code: CodeConflict, Message: "A user with this email already exists.", Field: "email", Err: err}
		}
		return ports.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID).Str("role", string(role)).Msg("user created")
	return u, nil
}

// CreateKey issues an API key for userID. The raw key is only returned here.
// A zero ttl means the key never expires.
func (s *AuthService) CreateKey(ctx context.Context, userID, name string, ttl time.Duration) (string, key.Key, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", key.Key{}, invalidParam("user", "unknown user")
		}
		return "", key.Key{}, fmt.Errorf("get user: %w", err)
	}

	entropy, err := s.random.Bytes(key.EntropyLen)
	if err != nil {
		return "", key.Key{}, fmt.Errorf("generate key: %w", err)
	}
	raw := key.Format(s.keyPrefix, entropy)
	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return "", key.Key{}, fmt.Errorf("hash key: %w", err)
	}

	now := s.clock.Now().UTC()
	k := key.New("key_"+s.idGen.New(), userID, name, raw, hash, now)
	if ttl > 0 {
		k = k.WithExpiry(now.Add(ttl))
	}
	if err := s.keys.Create(ctx, k); err != nil {
		return "", key.Key{}, fmt.Errorf("create key: %w", err)
	}

	s.logger.Info().Str("key_id", k.ID).Str("user_id", userID).Msg("api key created")
	return raw, k, nil
}

// RevokeKey revokes an API key by ID.
func (s *AuthService) RevokeKey(ctx context.Context, id string) error {
	if err := s.keys.Revoke(ctx, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return &Error{Kind: KindNotFound, Code: "not_found", Message: "No such key."}
		}
		return fmt.Errorf("revoke key: %w", err)
	}
	return nil
}

// IssueToken signs a bearer token for userID.
func (s *AuthService) IssueToken(ctx context.Context, userID string) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, errors.New("token service not configured")
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", time.Time{}, invalidParam("user", "unknown user")
		}
		return "", time.Time{}, fmt.Errorf("get user: %w", err)
	}
	return s.tokens.GenerateToken(u.ID, u.Role)
}

// IdentityFor returns the identity of the user addressed by ID or email.
func (s *AuthService) IdentityFor(ctx context.Context, idOrEmail string) (identity.Identity, error) {
	u, err := s.users.Get(ctx, idOrEmail)
	if errors.Is(err, ports.ErrNotFound) && strings.Contains(idOrEmail, "@") {
		u, err = s.users.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(idOrEmail)))
	}
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return identity.Anonymous, invalidParam("user", "unknown user")
		}
		return identity.Anonymous, fmt.Errorf("get user: %w", err)
	}
	return identity.Identity{UserID: u.ID, Role: u.Role}, nil
}

// KeyPrefix returns the prefix every issued API key starts with.
func (s *AuthService) KeyPrefix() string {
	return s.keyPrefix
}

// Users lists user accounts.
func (s *AuthService) Users(ctx context.Context) ([]ports.User, error) {
	return s.users.List(ctx)
}
