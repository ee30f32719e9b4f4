package field

import (
	"strconv"
)

// Encode converts a sanitized value into its stored text form.
// Booleans are stored as "1" and "0".
func Encode(t ValueType, v any) string {
	switch t {
	case TypeInteger:
		if i, ok := v.(int64); ok {
			return strconv.FormatInt(i, 10)
		}
	case TypeNumber:
		if f, ok := v.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok && b {
			return "1"
		}
		return "0"
	}
	return toText(v)
}

// Decode converts stored text back into a typed value. Strings are returned
// untouched; other types are coerced the same way Sanitize coerces them.
func Decode(t ValueType, stored string) any {
	if t == TypeString {
		return stored
	}
	return Sanitize(t, stored)
}
