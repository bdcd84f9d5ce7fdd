// File: confschema/helper.go
package confschema

import (
	"maps"
	"slices"
	"strings"
)

// flattenMap converts a nested map[string]any to a flat map with dot-notation
// paths. Only leaves are kept; empty tables vanish.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range nested {
		path := joinPath(prefix, key)
		if sub, isMap := value.(map[string]any); isMap {
			maps.Copy(flat, flattenMap(sub, path))
			continue
		}
		flat[path] = value
	}
	return flat
}

// setNestedValue sets a value in a nested map using a dot-notation path,
// creating intermediate maps as needed. A non-map segment in the way is
// replaced by a map.
func setNestedValue(nested map[string]any, path string, value any) {
	setNestedSegments(nested, strings.Split(path, "."), value)
}

// setNestedSegments is setNestedValue with the path already split. Segments
// may contain dots; they are kept as single keys.
func setNestedSegments(nested map[string]any, segments []string, value any) {
	current := nested
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// mergeTree deep-merges src into dst. Tables present on both sides merge;
// any other value in src replaces the one in dst.
func mergeTree(dst, src map[string]any) {
	for key, value := range src {
		sub, isMap := value.(map[string]any)
		existing, wasMap := dst[key].(map[string]any)
		if isMap && wasMap {
			mergeTree(existing, sub)
			continue
		}
		dst[key] = cloneValue(value)
	}
}

// isValidKeySegment checks if a single path segment is a valid TOML bare key:
// ASCII letters, digits, underscores and dashes.
func isValidKeySegment(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

func isValidShortName(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// isValidLongName accepts key-segment characters plus dots, not starting
// with a dash.
func isValidLongName(s string) bool {
	if s == "" || s[0] == '-' {
		return false
	}
	for _, segment := range strings.Split(s, ".") {
		if !isValidKeySegment(segment) {
			return false
		}
	}
	return true
}

// cloneValue deep-copies maps and the slice shapes produced by decoders and
// coercion. Other values are returned as-is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	case []int64:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case []bool:
		return slices.Clone(t)
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}
