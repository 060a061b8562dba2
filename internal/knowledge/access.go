package knowledge

import "fmt"

// String formats a scalar knowledge value. Whole float64 values, as decoded
// from JSON, print without a fractional part.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// Float returns v as a float64 for the numeric types a tree may hold.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

// Items returns the elements of a list value as mappings, skipping elements
// that are not mappings. Non-list values yield nil.
func Items(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// Strings returns the elements of a list value formatted with [String].
// Non-list values yield nil.
func Strings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, String(e))
		}
		return out
	default:
		return nil
	}
}
