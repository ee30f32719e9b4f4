// Package events provides a publish/subscribe bus for post and field
// change notifications.
package events

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Event names.
const (
	PostCreated = "post.created"
	PostUpdated = "post.updated"
	MetaUpdated = "post_meta.updated"
	MetaDeleted = "post_meta.deleted"
)

// Event is a change that has already been persisted.
type Event struct {
	// Name is the event name, e.g. "post_meta.updated".
	Name string

	PostID int64

	// Field is the registered field name; empty for post events.
	Field string

	// UserID is the caller that made the change; empty when anonymous.
	UserID string

	// Value is the stored value after sanitization; nil on delete.
	Value any
}

// Handler processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus fans events out to subscribers keyed by name pattern.
type Bus struct {
	log  zerolog.Logger
	mu   sync.RWMutex
	subs map[string][]Handler
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{log: logger, subs: map[string][]Handler{}}
}

// Subscribe registers a handler for an event. Besides exact names it
// accepts "post_meta.*" for every event of one group and "*" for all.
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	b.subs[event] = append(b.subs[event], handler)
	b.mu.Unlock()
}

// Publish calls every matching handler synchronously in registration order:
// exact subscribers, then group wildcards, then "*". Handler errors are
// logged and do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	handlers := b.match(event.Name)
	b.log.Debug().Str("event", event.Name).Int64("post_id", event.PostID).
		Int("subscribers", len(handlers)).Msg("publish")

	for i, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.log.Warn().Err(err).Str("event", event.Name).Int("subscriber", i).Msg("subscriber failed")
		}
	}
}

// HasSubscribers reports whether publishing event would reach any handler.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

// match snapshots the handlers for name so they run without the lock held.
func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := slices.Clone(b.subs[name])
	if group, _, ok := strings.Cut(name, "."); ok {
		out = append(out, b.subs[group+".*"]...)
	}
	return append(out, b.subs["*"]...)
}
