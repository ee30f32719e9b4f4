// Package post provides the post value type and pure helpers.
// This package has NO dependencies on I/O or external packages.
package post

import (
	"errors"
	"strconv"
	"time"
)

// ResourceType is the API type name for posts.
const ResourceType = "post"

// Status values.
const (
	StatusDraft   = "draft"
	StatusPublish = "publish"
	StatusPrivate = "private"
)

// Post is a content entry (immutable value type).
type Post struct {
	ID        int64
	AuthorID  string
	Title     string
	Content   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attributes lists the attribute names every post exposes on its own.
// Registered fields may not reuse them.
var Attributes = []string{"id", "title", "content", "status", "author", "date", "modified"}

// ErrInvalidID is returned by ParseID for anything but a positive integer.
var ErrInvalidID = errors.New("invalid post id")

// ParseID accepts only plain decimal digits: no sign, no surrounding
// space.
func ParseID(raw string) (int64, error) {
	if raw == "" || raw[0] < '0' || raw[0] > '9' {
		return 0, ErrInvalidID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublish, StatusPrivate:
		return true
	}
	return false
}

// IDString formats the id the way the API exposes it.
func (p Post) IDString() string {
	return strconv.FormatInt(p.ID, 10)
}

// WithTitle returns a copy of the post with the Title set.
func (p Post) WithTitle(title string) Post {
	p.Title = title
	return p
}

// WithContent returns a copy of the post with the Content set.
func (p Post) WithContent(content string) Post {
	p.Content = content
	return p
}

// WithStatus returns a copy of the post with the Status set.
func (p Post) WithStatus(status string) Post {
	p.Status = status
	return p
}
