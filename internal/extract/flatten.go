// Package extract turns arbitrarily-shaped review payloads into a flat
// key map and resolves canonical fields from it via ordered candidate
// lists. Chatmeter, per-provider webhooks, and older export formats all
// disagree on key names and nesting; everything downstream of this
// package sees one shape.
package extract

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// FlatMap maps a normalized dot-joined lowercase key path to the scalar
// leaf value found there. Every leaf of the original payload appears
// under exactly one path; when two raw keys normalize to the same path
// the first one (in sorted raw-key order) wins.
type FlatMap map[string]any

// Flatten walks the payload tree and records every scalar leaf under its
// normalized path. Array indices become path segments, so
// {"reviews":[{"id":"a"}]} yields "reviews.0.id".
func Flatten(payload any) FlatMap {
	out := make(FlatMap)
	flattenInto("", payload, out)
	return out
}

func flattenInto(prefix string, v any, out FlatMap) {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(joinKey(prefix, NormalizeKey(k)), node[k], out)
		}
	case []any:
		for i, elem := range node {
			flattenInto(joinKey(prefix, strconv.Itoa(i)), elem, out)
		}
	case nil:
		// Null leaves carry no value worth indexing.
	default:
		if prefix == "" {
			// Bare scalar payload; give it a stable synthetic path.
			prefix = "value"
		}
		if _, exists := out[prefix]; !exists {
			out[prefix] = v
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	if key == "" {
		return prefix
	}
	return prefix + "." + key
}

// NormalizeKey lowercases a raw key and collapses every run of
// non-alphanumeric characters into a single dot. "Review_ID" and
// "review-id" both normalize to "review.id"; "reviewId" stays "reviewid"
// since camel case carries no separator.
func NormalizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	pendingSep := false
	for _, r := range strings.ToLower(key) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('.')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Stringify renders a scalar leaf as the string the matching logic
// compares against. JSON numbers arrive as float64; integral values
// print without a fractional part so a 5-star rating is "5", not "5.000000".
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}
