package field_test

import (
	"testing"

	"github.com/artpar/postmeta/domain/field"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello", "Hello"},
		{"Hello <script>", "Hello"},
		{"Hello <script>alert(1)</script>world", "Hello world"},
		{"<b>bold</b> text", "bold text"},
		{"<style>p{}</style>styled", "styled"},
		{"  spaced \t\n out  ", "spaced out"},
		{"nul\x00byte", "nulbyte"},
		{"bell\x07", "bell"},
		{"a < b", "a < b"},
		{"fish &amp; chips", "fish &amp; chips"},
		{"<<b>script>x", ""},   // first pass exposes a script tag
		{"e\u0301", "\u00e9"}, // NFC composes
		{"", ""},
	}

	for _, tt := range tests {
		if got := field.SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_Coercion(t *testing.T) {
	tests := []struct {
		name string
		typ  field.ValueType
		raw  any
		want any
	}{
		{"nil stays nil", field.TypeString, nil, nil},
		{"string", field.TypeString, " Hello <i>you</i> ", "Hello you"},
		{"integer from float", field.TypeInteger, 42.0, int64(42)},
		{"integer from string", field.TypeInteger, "17", int64(17)},
		{"integer truncates", field.TypeInteger, "3.9", int64(3)},
		{"integer garbage", field.TypeInteger, "x", int64(0)},
		{"integer out of range", field.TypeInteger, float64(1 << 63), int64(0)},
		{"number", field.TypeNumber, "2.5", 2.5},
		{"number from int", field.TypeNumber, 3, 3.0},
		{"boolean true", field.TypeBoolean, "on", true},
		{"boolean false", field.TypeBoolean, 0.0, false},
		{"boolean garbage", field.TypeBoolean, "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := field.Sanitize(tt.typ, tt.raw); got != tt.want {
				t.Errorf("Sanitize(%s, %v) = %#v, want %#v", tt.typ, tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []any{
		"Hello <script>",
		"<<b>b>nested</b>",
		"<scr<script>ipt>alert(1)</script>",
		"a\u0000b​ c",
		"  <p>para</p>\n\n<p>two</p> ",
		"x <y",
		"&lt;b&gt;escaped&lt;/b&gt;",
		"≮b>",
		"ȩ́",
		"plain",
		42.0,
		"7.25",
		true,
	}
	types := []field.ValueType{field.TypeString, field.TypeInteger, field.TypeNumber, field.TypeBoolean}

	for _, typ := range types {
		for _, in := range inputs {
			once := field.Sanitize(typ, in)
			twice := field.Sanitize(typ, once)
			if once != twice {
				t.Errorf("Sanitize(%s) not idempotent for %q: %#v then %#v", typ, in, once, twice)
			}
		}
	}
}

func FuzzSanitizeText_Idempotent(f *testing.F) {
	for _, seed := range []string{"Hello <script>", "<<b>b>", "a &amp; b", "<a href='x'>l</a>", "́<"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		once := field.SanitizeText(s)
		if twice := field.SanitizeText(once); twice != once {
			t.Errorf("SanitizeText(%q) = %q, then %q", s, once, twice)
		}
	})
}
