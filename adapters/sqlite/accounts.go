package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/key"
	"github.com/artpar/postmeta/ports"
)

const userColumns = `id, email, name, role, created_at`

// UserStore implements ports.UserStore using SQLite.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new SQLite user store.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, id string) (ports.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, notFound(err)
}

// GetByEmail retrieves a user by email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (ports.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	return u, notFound(err)
}

// Create stores a new user. A taken email or ID returns ports.ErrConflict.
func (s *UserStore) Create(ctx context.Context, u ports.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, string(u.Role), u.CreatedAt)
	return uniqueViolation(err)
}

// List returns all users ordered by creation time.
func (s *UserStore) List(ctx context.Context) ([]ports.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []ports.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (ports.User, error) {
	var (
		u    ports.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
		return ports.User{}, err
	}
	u.Role = identity.Role(role)
	return u, nil
}

const keyColumns = `id, user_id, hash, prefix, name, expires_at, revoked_at, created_at`

// KeyStore implements ports.KeyStore using SQLite.
type KeyStore struct {
	db *DB
}

// NewKeyStore creates a new SQLite key store.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

// Get returns the keys whose lookup prefix is prefix.
func (s *KeyStore) Get(ctx context.Context, prefix string) ([]key.Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+keyColumns+` FROM api_keys WHERE prefix = ?`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []key.Key
	for rows.Next() {
		var (
			k                key.Key
			expires, revoked sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.UserID, &k.Hash, &k.Prefix, &k.Name, &expires, &revoked, &k.CreatedAt); err != nil {
			return nil, err
		}
		k.ExpiresAt, k.RevokedAt = timePtr(expires), timePtr(revoked)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Create stores a new key. Its user must exist.
func (s *KeyStore) Create(ctx context.Context, k key.Key) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO api_keys (`+keyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.UserID, k.Hash, k.Prefix, k.Name, nullTime(k.ExpiresAt), nullTime(k.RevokedAt), k.CreatedAt)
	return uniqueViolation(err)
}

// Revoke stamps the key with at. Revoking an unknown key returns
// ErrNotFound; revoking twice keeps the first time.
func (s *KeyStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`, at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

var (
	_ ports.UserStore = (*UserStore)(nil)
	_ ports.KeyStore  = (*KeyStore)(nil)
)
