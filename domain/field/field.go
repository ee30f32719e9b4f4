// Package field provides metadata field value types and pure validation and
// sanitization functions. This package performs no I/O.
package field

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"

	"github.com/artpar/postmeta/domain/identity"
	"github.com/artpar/postmeta/domain/post"
)

// ValueType is the serialization type of a field value.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeInteger ValueType = "integer"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
)

// Valid reports whether t is a value type the API can serialize.
func (t ValueType) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// Context selects which representation of a resource a field appears in.
type Context string

const (
	ContextView Context = "view"
	ContextEdit Context = "edit"
)

// ParseContext parses a request context parameter. Empty means view.
func ParseContext(s string) (Context, bool) {
	switch Context(s) {
	case "", ContextView:
		return ContextView, true
	case ContextEdit:
		return ContextEdit, true
	}
	return "", false
}

// Gate selects which operations on a field require the edit capability.
type Gate string

const (
	// GatePublic applies no authorization. Only allowed on readonly fields.
	GatePublic Gate = "public"
	// GateWrite authorizes writes only. Reads are open.
	GateWrite Gate = "write"
	// GateReadWrite authorizes both reads and writes.
	GateReadWrite Gate = "read_write"
)

// Valid reports whether g is a known gate.
func (g Gate) Valid() bool {
	switch g {
	case GatePublic, GateWrite, GateReadWrite:
		return true
	}
	return false
}

// GatesRead reports whether reads go through the permission check.
func (g Gate) GatesRead() bool { return g == GateReadWrite }

// GatesWrite reports whether writes go through the permission check.
func (g Gate) GatesWrite() bool { return g != GatePublic }

// Schema describes a field's value and where it is exposed.
type Schema struct {
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Type        ValueType `yaml:"type" json:"type"`
	Context     []Context `yaml:"context" json:"context"`
	Readonly    bool      `yaml:"readonly,omitempty" json:"readonly,omitempty"`

	// Enum restricts the accepted string values.
	Enum []string `yaml:"enum,omitempty" json:"enum,omitempty"`

	// MaxLength limits string values, counted in runes. Zero means no limit.
	MaxLength int `yaml:"max_length,omitempty" json:"maxLength,omitempty"`
}

// InContext reports whether the schema exposes the field in c.
func (s Schema) InContext(c Context) bool {
	return slices.Contains(s.Context, c)
}

// Writable reports whether the field accepts writes through the API.
func (s Schema) Writable() bool {
	return !s.Readonly && s.InContext(ContextEdit)
}

// GetFunc reads a field value for a post. A nil value means unset.
type GetFunc func(ctx context.Context, p post.Post, def Definition) (any, error)

// UpdateFunc persists an already sanitized value.
type UpdateFunc func(ctx context.Context, p post.Post, def Definition, value any) error

// PermissionFunc answers whether caller may access the field on p.
type PermissionFunc func(ctx context.Context, caller identity.Identity, p post.Post) (bool, error)

// Callbacks overrides the default read, write and permission behavior.
// Nil members fall back to the accessor's defaults.
type Callbacks struct {
	Get        GetFunc
	Update     UpdateFunc
	Permission PermissionFunc
}

// Definition binds a public field name to one or more resource types.
type Definition struct {
	ResourceTypes []string
	Name          string
	StorageKey    string
	Schema        Schema
	Gate          Gate
	Callbacks     Callbacks
}

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Normalized returns a copy with defaults applied: StorageKey falls back to
// Name, Gate to GateWrite, and an empty context list to view and edit.
func (d Definition) Normalized() Definition {
	if d.StorageKey == "" {
		d.StorageKey = d.Name
	}
	if d.Gate == "" {
		d.Gate = GateWrite
	}
	if len(d.Schema.Context) == 0 {
		d.Schema.Context = []Context{ContextView, ContextEdit}
	}
	d.Schema.Context = slices.Clone(d.Schema.Context)
	slices.Sort(d.Schema.Context)
	d.Schema.Context = slices.Compact(d.Schema.Context)
	d.ResourceTypes = slices.Clone(d.ResourceTypes)
	slices.Sort(d.ResourceTypes)
	d.ResourceTypes = slices.Compact(d.ResourceTypes)
	return d
}

// Check verifies the definition is internally consistent.
// It does not know which resource types exist; the registry checks that.
func (d Definition) Check() error {
	if len(d.ResourceTypes) == 0 {
		return fmt.Errorf("field %q: no resource types", d.Name)
	}
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("field %q: name must match %s", d.Name, namePattern)
	}
	if d.StorageKey == "" {
		return fmt.Errorf("field %q: empty storage key", d.Name)
	}
	if !d.Schema.Type.Valid() {
		return fmt.Errorf("field %q: unknown type %q", d.Name, d.Schema.Type)
	}
	for _, c := range d.Schema.Context {
		if c != ContextView && c != ContextEdit {
			return fmt.Errorf("field %q: unknown context %q", d.Name, c)
		}
	}
	if !d.Gate.Valid() {
		return fmt.Errorf("field %q: unknown gate %q", d.Name, d.Gate)
	}
	if d.Gate == GatePublic && d.Schema.Writable() {
		return fmt.Errorf("field %q: public gate requires a readonly field", d.Name)
	}
	if d.Schema.MaxLength < 0 {
		return fmt.Errorf("field %q: negative max_length", d.Name)
	}
	if len(d.Schema.Enum) > 0 && d.Schema.Type != TypeString {
		return fmt.Errorf("field %q: enum is only supported for string fields", d.Name)
	}
	return nil
}

// Same reports whether two normalized definitions are interchangeable.
// Callbacks compare by function identity.
func (d Definition) Same(o Definition) bool {
	return slices.Equal(d.ResourceTypes, o.ResourceTypes) &&
		d.Name == o.Name &&
		d.StorageKey == o.StorageKey &&
		d.Gate == o.Gate &&
		d.Schema.Description == o.Schema.Description &&
		d.Schema.Type == o.Schema.Type &&
		d.Schema.Readonly == o.Schema.Readonly &&
		d.Schema.MaxLength == o.Schema.MaxLength &&
		slices.Equal(d.Schema.Context, o.Schema.Context) &&
		slices.Equal(d.Schema.Enum, o.Schema.Enum) &&
		sameFunc(d.Callbacks.Get, o.Callbacks.Get) &&
		sameFunc(d.Callbacks.Update, o.Callbacks.Update) &&
		sameFunc(d.Callbacks.Permission, o.Callbacks.Permission)
}

// AppliesTo reports whether the field is registered for resourceType.
func (d Definition) AppliesTo(resourceType string) bool {
	return slices.Contains(d.ResourceTypes, resourceType)
}

func sameFunc(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.IsNil() || vb.IsNil() {
		return va.IsNil() == vb.IsNil()
	}
	return va.Pointer() == vb.Pointer()
}
