// ABOUTME: Deep copy and structural equality for configuration buffers.
// ABOUTME: Buffers are plain JSON-ish values (maps, slices, scalars) by invariant.

package session

import "reflect"

// CloneMap returns a deep copy of a configuration mapping. Values are assumed
// to be plain data (map[string]any, []any, scalars); anything else is copied
// by reference.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality between two configuration mappings.
func Equal(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
