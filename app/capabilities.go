package app

import (
	"context"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
)

// Capabilities answers capability checks with the role rules in
// domain/identity.
type Capabilities struct{}

// CanEditPost reports whether caller may edit p.
func (Capabilities) CanEditPost(_ context.Context, caller identity.Identity, p post.Post) (bool, error) {
	return identity.CanEditPost(caller, p), nil
}

// Ensure interface compliance.
var _ ports.Authorizer = Capabilities{}
