// Package ticket resolves canonical reviews to helpdesk tickets: layered
// lookup by external key, idempotent creation, duplicate sweeping, and
// the exact-body dedup guard for comments.
package ticket

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/model"
)

// externalKeyPrefix namespaces ticket external ids so the bridge never
// collides with tickets created by hand or by other integrations.
const externalKeyPrefix = "chatmeter"

var tagSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// ExternalKey derives the stable cross-system identifier for a review.
// Identical review ids always yield the identical key; it doubles as
// the idempotency token on ticket creation.
func ExternalKey(reviewID string) string {
	return externalKeyPrefix + ":" + reviewID
}

// ReviewTag derives the search-safe tag for a review id. Defensive
// fallback for helpdesk configurations where external-id search is
// unreliable; tags only allow lowercase alphanumerics and underscores.
func ReviewTag(reviewID string) string {
	sanitized := tagSanitizer.ReplaceAllString(strings.ToLower(reviewID), "_")
	return externalKeyPrefix + "_review_" + strings.Trim(sanitized, "_")
}

var titleCaser = cases.Title(language.English)

// Subject builds the ticket subject line for a review.
func Subject(review model.Review) string {
	provider := titleCaser.String(strings.ToLower(review.Provider))
	return fmt.Sprintf("%s review: %s", provider, review.LocationName)
}
