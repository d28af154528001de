// Package strings holds small helpers for list-valued configuration.
package strings

import "strings"

// DedupeAndTrim trims each value, drops empties and keeps the first
// occurrence of each value. Order is preserved; nil stays nil.
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
