package formatter

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// envelope wraps CLI output in a stable document shape.
type envelope struct {
	Kind  string `json:"kind" yaml:"kind"`
	Count *int   `json:"count,omitempty" yaml:"count,omitempty"`
	Data  any    `json:"data" yaml:"data"`
}

type errorEnvelope struct {
	Error string `json:"error" yaml:"error"`
}

// EncodedFormatter writes records as a serialized document: lists as
// {kind, count, data}, single records as {kind, data}.
type EncodedFormatter struct {
	name        string
	description string
	encode      func(w io.Writer, v any, compact bool) error
}

// NewJSONFormatter returns the json formatter. Compact output is one line.
func NewJSONFormatter() *EncodedFormatter {
	return &EncodedFormatter{
		name:        "json",
		description: "JSON output format",
		encode: func(w io.Writer, v any, compact bool) error {
			enc := json.NewEncoder(w)
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(v)
		},
	}
}

// NewYAMLFormatter returns the yaml formatter. Compact is ignored.
func NewYAMLFormatter() *EncodedFormatter {
	return &EncodedFormatter{
		name:        "yaml",
		description: "YAML output format",
		encode: func(w io.Writer, v any, _ bool) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

// Name returns the formatter name.
func (f *EncodedFormatter) Name() string { return f.name }

// Description returns the formatter description.
func (f *EncodedFormatter) Description() string { return f.description }

// FormatList writes records under a count.
func (f *EncodedFormatter) FormatList(w io.Writer, kind string, records []Record, opts FormatOptions) error {
	data := selectAll(records, opts.Columns)
	count := len(data)
	return f.encode(w, envelope{Kind: kind, Count: &count, Data: data}, opts.Compact)
}

// FormatRecord writes one record.
func (f *EncodedFormatter) FormatRecord(w io.Writer, kind string, record Record, opts FormatOptions) error {
	return f.encode(w, envelope{Kind: kind, Data: selectColumns(record, opts.Columns)}, opts.Compact)
}

// FormatError writes {error: message}.
func (f *EncodedFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, errorEnvelope{Error: err.Error()}, false)
}

func init() {
	Register(NewJSONFormatter())
	Register(NewYAMLFormatter())
}
