package field

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Sanitize coerces and cleans a value for storage. It never rejects input:
// values that cannot be coerced become the type's zero value. Callers that
// need rejection run Validate first.
//
// Sanitize is idempotent: Sanitize(t, Sanitize(t, v)) == Sanitize(t, v).
func Sanitize(t ValueType, raw any) any {
	if raw == nil {
		return nil
	}
	switch t {
	case TypeString:
		return SanitizeText(toText(raw))
	case TypeInteger:
		if i, ok := toInt(raw); ok {
			return i
		}
		if f, ok := toFloat(raw); ok && math.Abs(f) < 1<<63 {
			return int64(math.Trunc(f))
		}
		if b, ok := raw.(bool); ok && b {
			return int64(1)
		}
		return int64(0)
	case TypeNumber:
		if f, ok := toFloat(raw); ok {
			return f
		}
		if b, ok := raw.(bool); ok && b {
			return float64(1)
		}
		return float64(0)
	case TypeBoolean:
		b, _ := toBool(raw)
		return b
	}
	return raw
}

// SanitizeText cleans a plain-text value: it drops control characters,
// removes markup (including the content of script and style elements),
// collapses whitespace runs to one space, trims, and normalizes to NFC.
func SanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	// Removing one tag can join the halves of another ("<<b>b>"), so strip
	// until nothing changes. Each changing pass shortens s.
	for range len(s) + 1 {
		next := stripTags(s)
		if next == s {
			break
		}
		s = next
	}

	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}

func stripTags(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	b.Grow(len(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				// Raw keeps entities escaped so a second pass sees the same text.
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); dropsContent(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); dropsContent(name) && skip > 0 {
				skip--
			}
		}
	}
}

func dropsContent(tag []byte) bool {
	switch string(tag) {
	case "script", "style":
		return true
	}
	return false
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	}
	return ""
}
