// Package app contains the services that carry the field registry's
// operations: register, read, write and authorize.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/postmeta/core/events"
	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Write results reported to the observer.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultDenied  = "denied"
	ResultFailed  = "failed"
)

// FieldService mediates every read and write of a registered field.
type FieldService struct {
	registry *registry.Registry
	posts    ports.PostStore
	meta     ports.MetaStore
	authz    ports.Authorizer
	observer ports.FieldObserver
	events   *events.Bus
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// FieldDeps contains dependencies for FieldService.
type FieldDeps struct {
	Registry *registry.Registry
	Posts    ports.PostStore
	Meta     ports.MetaStore
	Authz    ports.Authorizer
	Observer ports.FieldObserver // optional
	Events   *events.Bus         // optional
	Logger   zerolog.Logger
}

// NewFieldService creates a new field service.
func NewFieldService(deps FieldDeps) *FieldService {
	return &FieldService{
		registry: deps.Registry,
		posts:    deps.Posts,
		meta:     deps.Meta,
		authz:    deps.Authz,
		observer: deps.Observer,
		events:   deps.Events,
		logger:   deps.Logger,
		tracer:   otel.Tracer("github.com/artpar/postmeta/app"),
	}
}

// Registry returns the registry the service reads definitions from.
func (s *FieldService) Registry() *registry.Registry {
	return s.registry
}

// Register adds a field definition to the registry.
func (s *FieldService) Register(def field.Definition) error {
	if err := s.registry.Register(def); err != nil {
		var conflict *registry.ConflictError
		if errors.As(err, &conflict) {
			return &Error{Kind: KindConflict, Code: CodeConflict, Message: "Field registration conflict.", Field: def.Name, Err: err}
		}
		return &Error{Kind: KindInvalidInput, Code: CodeInvalidParam, Message: "Invalid field definition.", Field: def.Name, Err: err}
	}

	registered, _ := s.registry.Lookup(def.ResourceTypes[0], def.Name)
	s.logger.Info().
		Str("field", registered.Name).
		Str("storage_key", registered.StorageKey).
		Strs("resource_types", registered.ResourceTypes).
		Str("type", string(registered.Schema.Type)).
		Str("gate", string(registered.Gate)).
		Msg("field registered")
	return nil
}

// Lookup returns a registered field or a NotFound error.
func (s *FieldService) Lookup(resourceType, name string) (field.Definition, error) {
	def, ok := s.registry.Lookup(resourceType, name)
	if !ok {
		return field.Definition{}, &Error{Kind: KindNotFound, Code: CodeFieldNotFound, Message: "No such field.", Field: name}
	}
	return def, nil
}

// Resolve parses a post id parameter and loads the post.
func (s *FieldService) Resolve(ctx context.Context, rawID string) (post.Post, error) {
	id, err := post.ParseID(rawID)
	if err != nil {
		return post.Post{}, invalidPostID()
	}

	p, err := s.posts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return post.Post{}, postNotFound()
		}
		return post.Post{}, fmt.Errorf("get post %d: %w", id, err)
	}
	return p, nil
}

// Authorize resolves the post addressed by rawID and checks that caller may
// edit it. A missing or malformed id fails before the caller is considered.
func (s *FieldService) Authorize(ctx context.Context, caller identity.Identity, rawID string) (post.Post, error) {
	p, err := s.Resolve(ctx, rawID)
	if err != nil {
		return post.Post{}, err
	}

	ok, err := s.authz.CanEditPost(ctx, caller, p)
	if err != nil {
		return post.Post{}, fmt.Errorf("check edit capability: %w", err)
	}
	if !ok {
		return post.Post{}, forbidden("Sorry, you are not allowed to edit this post.")
	}
	return p, nil
}

// Read returns the field's value on p, or nil when unset. Fields gated for
// reads are checked against caller first.
func (s *FieldService) Read(ctx context.Context, caller identity.Identity, p post.Post, def field.Definition) (any, error) {
	ctx, span := s.tracer.Start(ctx, "field.read", trace.WithAttributes(
		attribute.String("field.name", def.Name),
		attribute.Int64("post.id", p.ID),
	))
	defer span.End()

	if def.Gate.GatesRead() {
		if err := s.permit(ctx, caller, p, def, "read"); err != nil {
			span.SetStatus(codes.Error, "denied")
			return nil, err
		}
	}

	var (
		value any
		err   error
	)
	if def.Callbacks.Get != nil {
		value, err = def.Callbacks.Get(ctx, p, def)
	} else {
		value, err = s.load(ctx, p.ID, def)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("read field %s: %w", def.Name, err)
	}

	if s.observer != nil {
		s.observer.FieldRead(def.Name)
	}
	return value, nil
}

// Write authorizes, validates, sanitizes and persists raw as the field's
// value on p. A nil raw value deletes the stored value.
func (s *FieldService) Write(ctx context.Context, caller identity.Identity, p post.Post, def field.Definition, raw any) error {
	ctx, span := s.tracer.Start(ctx, "field.write", trace.WithAttributes(
		attribute.String("field.name", def.Name),
		attribute.Int64("post.id", p.ID),
	))
	defer span.End()

	if def.Gate.GatesWrite() {
		if err := s.permit(ctx, caller, p, def, "write"); err != nil {
			span.SetStatus(codes.Error, "denied")
			s.recordWrite(def.Name, ResultDenied)
			return err
		}
	}

	if err := field.Validate(def.Schema, raw); err != nil {
		span.SetStatus(codes.Error, "invalid")
		s.recordWrite(def.Name, ResultInvalid)
		return invalidParam(def.Name, err.Error())
	}

	value := field.Sanitize(def.Schema.Type, raw)

	var err error
	switch {
	case def.Callbacks.Update != nil:
		err = def.Callbacks.Update(ctx, p, def, value)
	case value == nil:
		err = s.meta.Delete(ctx, p.ID, def.StorageKey)
	default:
		err = s.meta.Set(ctx, p.ID, def.StorageKey, field.Encode(def.Schema.Type, value))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		s.recordWrite(def.Name, ResultFailed)
		s.logger.Error().Err(err).
			Str("field", def.Name).
			Int64("post_id", p.ID).
			Msg("field write failed")
		return updateFailed(def.Name, err)
	}

	s.recordWrite(def.Name, ResultOK)
	s.logger.Debug().
		Str("field", def.Name).
		Int64("post_id", p.ID).
		Str("user_id", caller.UserID).
		Msg("field written")

	name := events.MetaUpdated
	if value == nil {
		name = events.MetaDeleted
	}
	s.publish(ctx, events.Event{Name: name, PostID: p.ID, Field: def.Name, UserID: caller.UserID, Value: value})
	return nil
}

func (s *FieldService) publish(ctx context.Context, e events.Event) {
	if s.events != nil {
		s.events.Publish(ctx, e)
	}
}

func (s *FieldService) load(ctx context.Context, postID int64, def field.Definition) (any, error) {
	stored, ok, err := s.meta.Get(ctx, postID, def.StorageKey)
	if err != nil || !ok {
		return nil, err
	}
	return field.Decode(def.Schema.Type, stored), nil
}

// permit runs the field's permission callback, or the edit capability when
// the field has none.
func (s *FieldService) permit(ctx context.Context, caller identity.Identity, p post.Post, def field.Definition, op string) error {
	var (
		ok  bool
		err error
	)
	if def.Callbacks.Permission != nil {
		ok, err = def.Callbacks.Permission(ctx, caller, p)
	} else {
		ok, err = s.authz.CanEditPost(ctx, caller, p)
	}
	if err != nil {
		return fmt.Errorf("check permission for %s: %w", def.Name, err)
	}
	if ok {
		return nil
	}

	if s.observer != nil {
		s.observer.FieldDenied(def.Name, op)
	}
	s.logger.Warn().
		Str("field", def.Name).
		Str("op", op).
		Int64("post_id", p.ID).
		Str("user_id", caller.UserID).
		Msg("field access denied")
	return forbidden("Sorry, you are not allowed to " + op + " this field.")
}

func (s *FieldService) recordWrite(name, result string) {
	if s.observer != nil {
		s.observer.FieldWrite(name, result)
	}
}
