// Package identity provides the caller identity value type and the pure
// capability rules evaluated against it.
package identity

import "github.com/artpar/postmeta/domain/post"

// Role is a caller's role.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleEditor        Role = "editor"
	RoleAuthor        Role = "author"
	RoleSubscriber    Role = "subscriber"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleEditor, RoleAuthor, RoleSubscriber:
		return true
	}
	return false
}

// Identity is the authenticated caller of a request.
// The zero value is the anonymous caller.
type Identity struct {
	UserID string
	Role   Role
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// IsAnonymous reports whether no user is attached.
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// CanEditPost is the "edit this post" capability.
// Editors and administrators edit anything, authors edit their own posts.
// This is a PURE function.
func CanEditPost(i Identity, p post.Post) bool {
	if i.IsAnonymous() {
		return false
	}
	switch i.Role {
	case RoleAdministrator, RoleEditor:
		return true
	case RoleAuthor:
		return p.AuthorID == i.UserID
	}
	return false
}

// CanCreatePosts reports whether the caller may create new posts.
// This is a PURE function.
func CanCreatePosts(i Identity) bool {
	if i.IsAnonymous() {
		return false
	}
	switch i.Role {
	case RoleAdministrator, RoleEditor, RoleAuthor:
		return true
	}
	return false
}
