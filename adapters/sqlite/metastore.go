package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/postmeta/ports"
)

// MetaStore implements ports.MetaStore on the postmeta table.
type MetaStore struct {
	db *DB
}

// NewMetaStore creates a new SQLite meta store.
func NewMetaStore(db *DB) *MetaStore {
	return &MetaStore{db: db}
}

// Get returns the value stored under (postID, key).
func (s *MetaStore) Get(ctx context.Context, postID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT meta_value FROM postmeta WHERE post_id = ? AND meta_key = ?
	`, postID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts value under (postID, key).
func (s *MetaStore) Set(ctx context.Context, postID int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO postmeta (post_id, meta_key, meta_value)
		VALUES (?, ?, ?)
		ON CONFLICT(post_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, postID, key, value)
	return err
}

// Delete removes the value under (postID, key).
func (s *MetaStore) Delete(ctx context.Context, postID int64, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM postmeta WHERE post_id = ? AND meta_key = ?
	`, postID, key)
	return err
}

// Ensure interface compliance.
var _ ports.MetaStore = (*MetaStore)(nil)
