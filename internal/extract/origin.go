package extract

import (
	"net/url"
	"sort"
	"strings"
)

// Display provider names resolved by origin inference. PROVIDER is the
// generic placeholder when nothing identifiable is found; REVIEWBUILDER
// is reserved for reviews collected through Chatmeter's own widget.
const (
	ProviderGoogle        = "GOOGLE"
	ProviderYelp          = "YELP"
	ProviderFacebook      = "FACEBOOK"
	ProviderReviewBuilder = "REVIEWBUILDER"
	ProviderUnknown       = "PROVIDER"
)

// InferOrigin derives a display provider name from the hostname of any
// URL-like value in the flattened payload. Used only when no explicit
// provider/source field resolved. Malformed URLs are skipped, never
// surfaced as errors.
func InferOrigin(flat FlatMap) string {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := Stringify(flat[k])
		if !urlPrefixRe.MatchString(s) {
			continue
		}
		if name := providerForHost(hostOf(s)); name != "" {
			return name
		}
	}
	return ProviderUnknown
}

func hostOf(raw string) string {
	if strings.HasPrefix(raw, "www.") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}

func providerForHost(host string) string {
	switch {
	case host == "":
		return ""
	case strings.Contains(host, "google"):
		return ProviderGoogle
	case strings.Contains(host, "yelp"):
		return ProviderYelp
	case strings.Contains(host, "facebook") || strings.Contains(host, "fb.com"):
		return ProviderFacebook
	case strings.Contains(host, "chatmeter"):
		return ProviderReviewBuilder
	default:
		return ""
	}
}
