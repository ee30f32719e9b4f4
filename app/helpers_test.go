package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artpar/postmeta/adapters/clock"
	"github.com/artpar/postmeta/adapters/memory"
	"github.com/artpar/postmeta/app"
	"github.com/artpar/postmeta/core/events"
	"github.com/artpar/postmeta/core/registry"
	"github.com/artpar/postmeta/domain/field"
	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/post"
	"github.com/artpar/postmeta/ports"
	"github.com/rs/zerolog"
)

var baseTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

var (
	alice = identity.Identity{UserID: "alice", Role: identity.RoleAuthor}
	bob   = identity.Identity{UserID: "bob", Role: identity.RoleSubscriber}
	carol = identity.Identity{UserID: "carol", Role: identity.RoleAuthor}
	ed    = identity.Identity{UserID: "ed", Role: identity.RoleEditor}
)

// errStore is returned by failingMeta.
var errStore = errors.New("disk full")

// failingMeta fails every Set and Delete.
type failingMeta struct {
	*memory.MetaStore
}

func (failingMeta) Set(context.Context, int64, string, string) error { return errStore }
func (failingMeta) Delete(context.Context, int64, string) error      { return errStore }

// recorder is a ports.FieldObserver that remembers what it saw.
type recorder struct {
	mu     sync.Mutex
	reads  []string
	writes []string
	denied []string
}

func (r *recorder) FieldRead(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads = append(r.reads, name)
}

func (r *recorder) FieldWrite(name, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, name+":"+result)
}

func (r *recorder) FieldDenied(name, op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denied = append(r.denied, name+":"+op)
}

// eventLog collects every event published on the bus.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.Name
	}
	return out
}

type testEnv struct {
	registry *registry.Registry
	posts    *memory.PostStore
	meta     ports.MetaStore
	observer *recorder
	events   *eventLog
	fields   *app.FieldService
	service  *app.PostService
}

type envOption func(*testEnv)

func withMeta(m ports.MetaStore) envOption {
	return func(e *testEnv) { e.meta = m }
}

func customMetaDef() field.Definition {
	return field.Definition{
		ResourceTypes: []string{post.ResourceType},
		Name:          "custom_meta",
		StorageKey:    "_custom_meta",
		Schema:        field.Schema{Type: field.TypeString, Description: "Custom meta value."},
	}
}

// newTestEnv builds the services over in-memory stores with custom_meta
// registered and post 42 (by alice, published) seeded.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	env := &testEnv{
		registry: registry.New(registry.ResourceType{Name: post.ResourceType, Builtins: post.Attributes}),
		posts:    memory.NewPostStore(),
		meta:     memory.NewMetaStore(),
		observer: &recorder{},
		events:   &eventLog{},
	}
	for _, opt := range opts {
		opt(env)
	}

	bus := events.NewBus(zerolog.Nop())
	bus.Subscribe("*", env.events.handle)
	env.fields = app.NewFieldService(app.FieldDeps{
		Registry: env.registry,
		Posts:    env.posts,
		Meta:     env.meta,
		Authz:    app.Capabilities{},
		Observer: env.observer,
		Events:   bus,
		Logger:   zerolog.Nop(),
	})
	env.service = app.NewPostService(app.PostDeps{
		Posts:  env.posts,
		Fields: env.fields,
		Authz:  app.Capabilities{},
		Clock:  clock.NewFake(baseTime),
		Logger: zerolog.Nop(),
	})

	if err := env.fields.Register(customMetaDef()); err != nil {
		t.Fatalf("register custom_meta: %v", err)
	}
	env.seedPost(t, post.Post{ID: 42, AuthorID: "alice", Title: "Answer", Status: post.StatusPublish})
	return env
}

func (e *testEnv) seedPost(t *testing.T, p post.Post) post.Post {
	t.Helper()
	p.CreatedAt, p.UpdatedAt = baseTime, baseTime
	created, err := e.posts.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return created
}

func (e *testEnv) post(t *testing.T, id int64) post.Post {
	t.Helper()
	p, err := e.posts.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get post %d: %v", id, err)
	}
	return p
}

func (e *testEnv) def(t *testing.T, name string) field.Definition {
	t.Helper()
	def, err := e.fields.Lookup(post.ResourceType, name)
	if err != nil {
		t.Fatalf("lookup %s: %v", name, err)
	}
	return def
}

// wantAppError asserts err is an *app.Error with the given status and code.
func wantAppError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var appErr *app.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("err = %v (%T), want *app.Error", err, err)
	}
	if appErr.Status() != status || appErr.Code != code {
		t.Errorf("err = %d %s (%v), want %d %s", appErr.Status(), appErr.Code, appErr, status, code)
	}
}
