package domain

// Answer values arrive as decoded JSON (string, float64, bool, []any) and
// stay untyped until read. The helpers below resolve a raw value against the
// branch the caller expects; each returns false when the value does not fit.

// Answered reports whether a raw value counts as a present, non-empty answer.
func Answered(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// StringValue resolves a raw value as a single string.
func StringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// NumberValue resolves a raw value as a number. JSON decoding yields
// float64; int and int64 are accepted for values constructed in Go.
func NumberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// StringsValue resolves a raw value as a list of strings. A bare string
// resolves as a one-element list, matching how single checkbox selections
// are submitted.
func StringsValue(v any) ([]string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil, false
		}
		return []string{t}, true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case []string:
		if len(t) == 0 {
			return nil, false
		}
		return t, true
	default:
		return nil, false
	}
}
