package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is one entry in an ordered field-resolution list: either an
// exact key (compared in normalized form) or a pattern scanned against
// every key in the map. List order is the priority order; the first
// candidate that matches any key holding a non-empty value wins.
type Candidate struct {
	key     string
	pattern *regexp.Regexp
}

// Key returns an exact-key candidate. The literal is normalized the same
// way payload keys are, so Key("review_id") matches a flattened
// "review.id" path.
func Key(literal string) Candidate {
	return Candidate{key: NormalizeKey(literal)}
}

// Pattern returns a candidate matching any flattened key against expr.
// Panics on an invalid expression; candidate lists are package constants.
func Pattern(expr string) Candidate {
	return Candidate{pattern: regexp.MustCompile(expr)}
}

// Pick resolves the first candidate (in list order) that matches a key
// with a non-empty value. Pattern candidates scan keys in sorted order so
// resolution is deterministic regardless of map iteration.
func Pick(flat FlatMap, candidates []Candidate) (any, bool) {
	var sortedKeys []string
	for _, c := range candidates {
		if c.pattern == nil {
			if v, ok := flat[c.key]; ok && !IsEmpty(v) {
				return v, true
			}
			continue
		}
		if sortedKeys == nil {
			sortedKeys = make([]string, 0, len(flat))
			for k := range flat {
				sortedKeys = append(sortedKeys, k)
			}
			sort.Strings(sortedKeys)
		}
		for _, k := range sortedKeys {
			if c.pattern.MatchString(k) && !IsEmpty(flat[k]) {
				return flat[k], true
			}
		}
	}
	return nil, false
}

// PickString is Pick with the winning value stringified.
func PickString(flat FlatMap, candidates []Candidate) (string, bool) {
	v, ok := Pick(flat, candidates)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(Stringify(v)), true
}

// IsEmpty reports whether a leaf value counts as absent: nil, or a value
// that stringifies to a blank or whitespace-only string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(Stringify(v)) == ""
}
