package provider

import (
	"fmt"
	"sort"
	"strconv"
)

// Normalize concatenates a provider's raw response value into a single
// string per spec.md §4.7 property 2: a plain string passes through
// unchanged; a []any of string chunks concatenates in order; a
// map[string]any keyed by stringified integers concatenates in numeric-key
// order. Any other shape, or an empty result, is an error.
func Normalize(raw any) (string, error) {
	var out string

	switch v := raw.(type) {
	case string:
		out = v

	case []any:
		for i, chunk := range v {
			s, ok := chunk.(string)
			if !ok {
				return "", fmt.Errorf("provider: chunk %d is not a string (got %T)", i, chunk)
			}
			out += s
		}

	case map[string]any:
		keys := make([]int, 0, len(v))
		byKey := make(map[int]string, len(v))
		for k := range v {
			n, err := strconv.Atoi(k)
			if err != nil {
				return "", fmt.Errorf("provider: non-integer chunk key %q", k)
			}
			s, ok := v[k].(string)
			if !ok {
				return "", fmt.Errorf("provider: chunk %q is not a string (got %T)", k, v[k])
			}
			keys = append(keys, n)
			byKey[n] = s
		}
		sort.Ints(keys)
		for _, k := range keys {
			out += byKey[k]
		}

	default:
		return "", fmt.Errorf("provider: unrecognized response shape %T", raw)
	}

	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
