package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/artpar/postmeta/core/events"
	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
	"github.com/rs/zerolog"
)

// PostView is a post rendered for one context, with its registered fields.
type PostView struct {
	Post    post.Post
	Context field.Context
	Fields  map[string]any
}

// CreateInput holds the attributes of a new post.
type CreateInput struct {
	Title   string
	Content string
	Status  string
	Fields  map[string]any
}

// PostService renders posts with their registered fields and dispatches
// updates to the field pipeline.
type PostService struct {
	posts    ports.PostStore
	fields   *FieldService
	registry *registry.Registry
	authz    ports.Authorizer
	clock    ports.Clock
	logger   zerolog.Logger
}

// PostDeps contains dependencies for PostService.
type PostDeps struct {
	Posts  ports.PostStore
	Fields *FieldService
	Authz  ports.Authorizer
	Clock  ports.Clock
	Logger zerolog.Logger
}

// NewPostService creates a new post service.
func NewPostService(deps PostDeps) *PostService {
	return &PostService{
		posts:    deps.Posts,
		fields:   deps.Fields,
		registry: deps.Fields.Registry(),
		authz:    deps.Authz,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
}

// Get renders the post addressed by rawID. The edit context, and any post
// that is not published, require the edit capability.
func (s *PostService) Get(ctx context.Context, caller identity.Identity, rawID, contextParam string) (PostView, error) {
	c, ok := field.ParseContext(contextParam)
	if !ok {
		return PostView{}, invalidParam("context", "context must be one of view, edit")
	}

	p, err := s.fields.Resolve(ctx, rawID)
	if err != nil {
		return PostView{}, err
	}

	ok, err = s.visible(ctx, caller, p, c)
	if err != nil {
		return PostView{}, err
	}
	if !ok {
		return PostView{}, forbidden("Sorry, you are not allowed to edit this post.")
	}

	return s.render(ctx, caller, p, c)
}

// List renders a page of posts in the view context. Unpublished posts are
// included only when caller may edit them.
func (s *PostService) List(ctx context.Context, caller identity.Identity, limit, offset int) ([]PostView, int, error) {
	posts, err := s.posts.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		ok, err := s.visible(ctx, caller, p, field.ContextView)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			continue
		}
		view, err := s.render(ctx, caller, p, field.ContextView)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

// Create stores a new post authored by caller and writes any registered
// fields supplied with it.
func (s *PostService) Create(ctx context.Context, caller identity.Identity, in CreateInput) (PostView, error) {
	if !identity.CanCreatePosts(caller) {
		return PostView{}, forbidden("Sorry, you are not allowed to create posts as this user.")
	}

	status := in.Status
	if status == "" {
		status = post.StatusDraft
	}
	if !post.ValidStatus(status) {
		return PostView{}, invalidParam("status", "status must be one of draft, publish, private")
	}
	defs, err := s.fieldsFor(in.Fields)
	if err != nil {
		return PostView{}, err
	}
	// Reject bad values before the post exists so a failed create leaves
	// nothing behind.
	for _, def := range defs {
		if err := field.Validate(def.Schema, in.Fields[def.Name]); err != nil {
			return PostView{}, invalidParam(def.Name, err.Error())
		}
	}

	now := s.clock.Now().UTC()
	p, err := s.posts.Create(ctx, post.Post{
		AuthorID:  caller.UserID,
		Title:     field.SanitizeText(in.Title),
		Content:   in.Content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return PostView{}, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info().Int64("post_id", p.ID).Str("user_id", caller.UserID).Msg("post created")
	s.fields.publish(ctx, events.Event{Name: events.PostCreated, PostID: p.ID, UserID: caller.UserID})

	for _, def := range defs {
		if err := s.fields.Write(ctx, caller, p, def, in.Fields[def.Name]); err != nil {
			return PostView{}, err
		}
	}
	return s.render(ctx, caller, p, field.ContextEdit)
}

// Update authorizes caller against the post addressed by rawID, applies the
// builtin attributes in body, then writes each registered field in name
// order. The first failure is returned; earlier writes are kept.
func (s *PostService) Update(ctx context.Context, caller identity.Identity, rawID string, body map[string]any) (PostView, error) {
	p, err := s.fields.Authorize(ctx, caller, rawID)
	if err != nil {
		return PostView{}, err
	}

	builtins := make(map[string]any)
	custom := make(map[string]any)
	for name, v := range body {
		if s.registry.Builtin(post.ResourceType, name) {
			builtins[name] = v
		} else {
			custom[name] = v
		}
	}

	updated, changed, err := applyBuiltins(p, builtins)
	if err != nil {
		return PostView{}, err
	}
	defs, err := s.fieldsFor(custom)
	if err != nil {
		return PostView{}, err
	}

	if changed {
		updated.UpdatedAt = s.clock.Now().UTC()
		if err := s.posts.Update(ctx, updated); err != nil {
			return PostView{}, updateFailed("post", err)
		}
		p = updated
		s.fields.publish(ctx, events.Event{Name: events.PostUpdated, PostID: p.ID, UserID: caller.UserID})
	}

	for _, def := range defs {
		if err := s.fields.Write(ctx, caller, p, def, custom[def.Name]); err != nil {
			return PostView{}, err
		}
	}
	return s.render(ctx, caller, p, field.ContextEdit)
}

// ReadField returns a single registered field of the post addressed by rawID.
func (s *PostService) ReadField(ctx context.Context, caller identity.Identity, rawID, name string) (any, error) {
	p, err := s.fields.Resolve(ctx, rawID)
	if err != nil {
		return nil, err
	}
	def, err := s.fields.Lookup(post.ResourceType, name)
	if err != nil {
		return nil, err
	}
	if !def.Schema.InContext(field.ContextView) {
		return nil, &Error{Kind: KindNotFound, Code: CodeFieldNotFound, Message: "No such field.", Field: name}
	}
	ok, err := s.visible(ctx, caller, p, field.ContextView)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, forbidden("Sorry, you are not allowed to edit this post.")
	}
	return s.fields.Read(ctx, caller, p, def)
}

// visible reports whether caller may see p in c. Published posts are public
// in the view context; everything else needs the edit capability.
func (s *PostService) visible(ctx context.Context, caller identity.Identity, p post.Post, c field.Context) (bool, error) {
	if c == field.ContextView && p.Status == post.StatusPublish {
		return true, nil
	}
	ok, err := s.authz.CanEditPost(ctx, caller, p)
	if err != nil {
		return false, fmt.Errorf("check edit capability: %w", err)
	}
	return ok, nil
}

// WriteField writes a single registered field of the post addressed by rawID.
func (s *PostService) WriteField(ctx context.Context, caller identity.Identity, rawID, name string, raw any) error {
	p, err := s.fields.Resolve(ctx, rawID)
	if err != nil {
		return err
	}
	def, err := s.fields.Lookup(post.ResourceType, name)
	if err != nil {
		return err
	}
	return s.fields.Write(ctx, caller, p, def, raw)
}

// render reads every field exposed in c. Fields the caller may not read are
// left out rather than failing the whole representation.
func (s *PostService) render(ctx context.Context, caller identity.Identity, p post.Post, c field.Context) (PostView, error) {
	view := PostView{Post: p, Context: c, Fields: make(map[string]any)}
	for _, def := range s.registry.Fields(post.ResourceType) {
		if !def.Schema.InContext(c) {
			continue
		}
		v, err := s.fields.Read(ctx, caller, p, def)
		if errors.Is(err, ErrPermissionDenied) {
			continue
		}
		if err != nil {
			return PostView{}, err
		}
		view.Fields[def.Name] = v
	}
	return view, nil
}

// fieldsFor maps body keys to registered fields, rejecting unknown names.
func (s *PostService) fieldsFor(values map[string]any) ([]field.Definition, error) {
	defs := make([]field.Definition, 0, len(values))
	for name := range values {
		def, ok := s.registry.Lookup(post.ResourceType, name)
		if !ok {
			return nil, invalidParam(name, "unknown attribute")
		}
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

// applyBuiltins sets the writable builtin attributes on p. The id may be
// echoed back unchanged; other builtins are read-only.
func applyBuiltins(p post.Post, values map[string]any) (post.Post, bool, error) {
	changed := false
	for name, v := range values {
		switch name {
		case "id":
			if id, err := post.ParseID(fmt.Sprint(v)); err != nil || id != p.ID {
				return p, false, invalidParam("id", "id cannot be changed")
			}
		case "title":
			title, ok := v.(string)
			if !ok {
				return p, false, invalidParam("title", "value is not of type string")
			}
			p = p.WithTitle(field.SanitizeText(title))
			changed = true
		case "content":
			content, ok := v.(string)
			if !ok {
				return p, false, invalidParam("content", "value is not of type string")
			}
			p = p.WithContent(content)
			changed = true
		case "status":
			status, ok := v.(string)
			if !ok || !post.ValidStatus(status) {
				return p, false, invalidParam("status", "status must be one of draft, publish, private")
			}
			p = p.WithStatus(status)
			changed = true
		default:
			return p, false, invalidParam(name, "field is read-only")
		}
	}
	return p, changed, nil
}
