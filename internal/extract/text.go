package extract

import (
	"regexp"
	"strconv"
	"unicode"
)

var (
	urlPrefixRe = regexp.MustCompile(`^(https?://|www\.)`)
	isoStampRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]|$)`)
	hexIdentRe  = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	textKeyHint = regexp.MustCompile(`(comment|text|review|feedback|message)`)
)

const (
	minTextLen  = 15
	minHexIdent = 20
)

// LooksLikeText reports whether s plausibly is reviewer-written prose
// rather than an identifier, URL, or timestamp that landed under a
// text-ish key. Used by the poller, where list payloads routinely stuff
// object ids into comment fields.
func LooksLikeText(s string) bool {
	if len(s) < minTextLen {
		return false
	}
	if urlPrefixRe.MatchString(s) || isoStampRe.MatchString(s) {
		return false
	}
	if len(s) >= minHexIdent && hexIdentRe.MatchString(s) {
		return false
	}
	hasLetter, hasSpace := false, false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsSpace(r) {
			hasSpace = true
		}
		if hasLetter && hasSpace {
			return true
		}
	}
	return false
}

// DeepText visits every string leaf of the payload and picks the best
// review-text candidate in two passes: leaves whose immediate key name
// hints at free text win first; among equally-preferred leaves the
// longest string passing LooksLikeText wins. The two-pass preference
// decides which of several plausible free-text fields is surfaced, so
// keep it exact.
func DeepText(payload any) (string, bool) {
	var hinted, other []string
	collectStrings("", payload, &hinted, &other)

	if best, ok := longestText(hinted); ok {
		return best, true
	}
	return longestText(other)
}

func collectStrings(key string, v any, hinted, other *[]string) {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			collectStrings(k, child, hinted, other)
		}
	case []any:
		for i, child := range node {
			collectStrings(strconv.Itoa(i), child, hinted, other)
		}
	case string:
		if textKeyHint.MatchString(NormalizeKey(key)) {
			*hinted = append(*hinted, node)
		} else {
			*other = append(*other, node)
		}
	}
}

func longestText(candidates []string) (string, bool) {
	best, found := "", false
	for _, s := range candidates {
		if !LooksLikeText(s) {
			continue
		}
		if !found || len(s) > len(best) {
			best, found = s, true
		}
	}
	return best, found
}
