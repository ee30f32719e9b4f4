// Package registry manages metadata field registration and conflict detection.
// It ensures fields don't claim names already taken on a resource type and
// provides lookup for the request path.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/postmeta/domain/field"
)

// ErrInvalidDefinition wraps every definition that fails validation.
var ErrInvalidDefinition = errors.New("invalid field definition")

// ResourceType declares a type fields can be registered on, along with the
// attribute names it already exposes.
type ResourceType struct {
	Name     string
	Builtins []string
}

// Registry holds the field definitions bound to each resource type.
type Registry struct {
	mu sync.RWMutex

	// known resource types and their builtin attribute names
	types map[string]map[string]bool

	// fields by resource type, then public name
	fields map[string]map[string]field.Definition
}

// New creates a registry that accepts fields for the given resource types.
func New(types ...ResourceType) *Registry {
	r := &Registry{
		types:  make(map[string]map[string]bool, len(types)),
		fields: make(map[string]map[string]field.Definition, len(types)),
	}
	for _, t := range types {
		builtins := make(map[string]bool, len(t.Builtins))
		for _, b := range t.Builtins {
			builtins[b] = true
		}
		r.types[t.Name] = builtins
		r.fields[t.Name] = make(map[string]field.Definition)
	}
	return r
}

// Register adds a field definition to every resource type it names.
// Registering an identical definition again is a no-op. A different
// definition under a taken (resource type, name) pair is a *ConflictError.
// Registration is all-or-nothing across resource types.
func (r *Registry) Register(def field.Definition) error {
	def = def.Normalized()
	if err := def.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var conflicts []Conflict
	pending := make([]string, 0, len(def.ResourceTypes))
	for _, rt := range def.ResourceTypes {
		builtins, known := r.types[rt]
		if !known {
			return fmt.Errorf("%w: field %q: unknown resource type %q", ErrInvalidDefinition, def.Name, rt)
		}
		if builtins[def.Name] {
			conflicts = append(conflicts, Conflict{ResourceType: rt, Name: def.Name, Builtin: true})
			continue
		}
		existing, taken := r.fields[rt][def.Name]
		if !taken {
			pending = append(pending, rt)
			continue
		}
		if !existing.Same(def) {
			conflicts = append(conflicts, Conflict{
				ResourceType: rt,
				Name:         def.Name,
				StorageKeys:  [2]string{existing.StorageKey, def.StorageKey},
			})
		}
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}

	for _, rt := range pending {
		r.fields[rt][def.Name] = def
	}
	return nil
}

// Lookup returns the field registered under name on resourceType.
func (r *Registry) Lookup(resourceType, name string) (field.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.fields[resourceType][name]
	return def, ok
}

// Fields returns the fields registered on resourceType, sorted by name.
func (r *Registry) Fields(resourceType string) []field.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]field.Definition, 0, len(r.fields[resourceType]))
	for _, def := range r.fields[resourceType] {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

// Entry is one (resource type, field) pair in a registry snapshot.
type Entry struct {
	ResourceType string
	Field        field.Definition
}

// List returns every registration sorted by resource type, then name.
func (r *Registry) List() []Entry {
	var entries []Entry
	for _, rt := range r.ResourceTypes() {
		for _, def := range r.Fields(rt) {
			entries = append(entries, Entry{ResourceType: rt, Field: def})
		}
	}
	return entries
}

// ResourceTypes returns the known resource type names, sorted.
func (r *Registry) ResourceTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Known reports whether resourceType accepts field registrations.
func (r *Registry) Known(resourceType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.types[resourceType]
	return ok
}

// Builtin reports whether name is an attribute resourceType exposes itself.
func (r *Registry) Builtin(resourceType, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.types[resourceType][name]
}

// Conflict describes one rejected claim on a (resource type, name) pair.
type Conflict struct {
	ResourceType string
	Name         string
	Builtin      bool
	StorageKeys  [2]string // existing, rejected
}

func (c Conflict) String() string {
	if c.Builtin {
		return fmt.Sprintf("%s.%s: collides with a builtin attribute", c.ResourceType, c.Name)
	}
	return fmt.Sprintf("%s.%s: already registered (storage key %q, rejected %q)",
		c.ResourceType, c.Name, c.StorageKeys[0], c.StorageKeys[1])
}

// ConflictError represents one or more field name conflicts.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = c.String()
	}
	return fmt.Sprintf("field conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}
