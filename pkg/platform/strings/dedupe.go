// Package strings provides string slice helpers.
package strings

import "strings"

// DedupeAndTrim trims each element and drops empties and repeats, keeping
// first-seen order. Config uses it for comma-separated lists such as
// KAFKA_BROKERS.
func DedupeAndTrim(values []string) []string {
	if values == nil {
		return nil
	}
	out := values[:0:0]
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
