// Package formatter provides a pluggable output formatting system.
// Formatters convert records to table, json or yaml output for the CLI.
package formatter

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
)

// Record is one row of output.
type Record map[string]any

// Formatter converts records to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records of one kind, such as "fields".
	FormatList(w io.Writer, kind string, records []Record, opts FormatOptions) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, kind string, record Record, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns selects and orders fields (nil = all, sorted by name).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry maps names to formatters. The preferred default is "table";
// when that is missing Default falls back to the first name in order.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]Formatter
	preferred string
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Formatter{}, preferred: "table"}
}

// Register fails if the name is taken.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := f.Name()
	if _, taken := r.byName[name]; taken {
		return fmt.Errorf("formatter %q already registered", name)
	}
	r.byName[name] = f
	return nil
}

func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	f, ok := r.byName[name]
	r.mu.RUnlock()
	return f, ok
}

// Default returns nil only for an empty registry.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.byName[r.preferred]; ok {
		return f
	}
	if names := r.sortedNames(); len(names) > 0 {
		return r.byName[names[0]]
	}
	return nil
}

// SetDefault only accepts registered names.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.preferred = name
	return nil
}

// List returns registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	return slices.Sorted(maps.Keys(r.byName))
}

// DefaultRegistry holds the built-in formatters; their init functions
// register them here.
var DefaultRegistry = NewRegistry()

func Register(f Formatter) error        { return DefaultRegistry.Register(f) }
func Get(name string) (Formatter, bool) { return DefaultRegistry.Get(name) }
func Default() Formatter                { return DefaultRegistry.Default() }
func List() []string                    { return DefaultRegistry.List() }

// columnsOf returns the requested columns, or every key of records in
// sorted order.
func columnsOf(records []Record, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	seen := map[string]struct{}{}
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// selectColumns returns the subset of record named by columns. With no
// columns the record is returned unchanged.
func selectColumns(record Record, columns []string) Record {
	if len(columns) == 0 || record == nil {
		return record
	}
	out := make(Record, len(columns))
	for _, col := range columns {
		if val, ok := record[col]; ok {
			out[col] = val
		}
	}
	return out
}

func selectAll(records []Record, columns []string) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = selectColumns(rec, columns)
	}
	return out
}
