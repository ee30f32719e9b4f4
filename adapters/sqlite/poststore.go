package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
)

// PostStore implements ports.PostStore using SQLite.
type PostStore struct {
	db *DB
}

// NewPostStore creates a new SQLite post store.
func NewPostStore(db *DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, author_id, title, content, status, created_at, updated_at`

// Get retrieves a post by ID.
func (s *PostStore) Get(ctx context.Context, id int64) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	var p post.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Post{}, ErrNotFound
	}
	if err != nil {
		return post.Post{}, err
	}
	return p, nil
}

// Create stores a new post. A zero ID is assigned by the database.
func (s *PostStore) Create(ctx context.Context, p post.Post) (post.Post, error) {
	var (
		result sql.Result
		err    error
	)
	if p.ID == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO posts (author_id, title, content, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.AuthorID, p.Title, p.Content, p.Status, p.CreatedAt, p.UpdatedAt)
	} else {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO posts (id, author_id, title, content, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.AuthorID, p.Title, p.Content, p.Status, p.CreatedAt, p.UpdatedAt)
	}
	if err != nil {
		return post.Post{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return post.Post{}, err
	}
	p.ID = id
	return p, nil
}

// Update modifies an existing post.
func (s *PostStore) Update(ctx context.Context, p post.Post) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE posts SET title = ?, content = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.Content, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns posts ordered by ID.
func (s *PostStore) List(ctx context.Context, limit, offset int) ([]post.Post, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []post.Post
	for rows.Next() {
		var p post.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Count returns total post count.
func (s *PostStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

// Ensure interface compliance.
var _ ports.PostStore = (*PostStore)(nil)
