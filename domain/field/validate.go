package field

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// InvalidValueError describes why a raw value was rejected.
type InvalidValueError struct {
	Reason string
}

func (e *InvalidValueError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) error {
	return &InvalidValueError{Reason: fmt.Sprintf(format, args...)}
}

// Validate rejects raw input that cannot be accepted for the schema.
// A nil raw value is accepted and means "delete the stored value".
// Validate never modifies the value; see Sanitize.
// This is a PURE function.
func Validate(s Schema, raw any) error {
	if s.Readonly {
		return invalid("field is read-only")
	}
	if !s.InContext(ContextEdit) {
		return invalid("field is not writable in the edit context")
	}
	if raw == nil {
		return nil
	}

	switch s.Type {
	case TypeString:
		str, ok := raw.(string)
		if !ok {
			return invalid("value is not of type string")
		}
		if s.MaxLength > 0 && utf8.RuneCountInString(str) > s.MaxLength {
			return invalid("value must be at most %d characters", s.MaxLength)
		}
		if len(s.Enum) > 0 && !slices.Contains(s.Enum, str) {
			return invalid("value is not one of %s", strings.Join(s.Enum, ", "))
		}
	case TypeInteger:
		if _, ok := toInt(raw); !ok {
			return invalid("value is not of type integer")
		}
	case TypeNumber:
		if _, ok := toFloat(raw); !ok {
			return invalid("value is not of type number")
		}
	case TypeBoolean:
		if _, ok := toBool(raw); !ok {
			return invalid("value is not of type boolean")
		}
	default:
		return invalid("unsupported type %q", s.Type)
	}
	return nil
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) >= 1<<63 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off", "":
			return false, true
		}
	case float64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case int:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	case int64:
		if b == 0 || b == 1 {
			return b == 1, true
		}
	}
	return false, false
}
