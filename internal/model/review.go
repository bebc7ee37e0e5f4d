package model

// ProviderClass is the coarse review-source categorization used for
// internal routing and reporting. It is deliberately coarser than the
// display provider name carried on Review.Provider: unknown sources all
// collapse into ClassOther instead of keeping their raw name.
type ProviderClass string

const (
	ClassGoogle      ProviderClass = "google"
	ClassYelp        ProviderClass = "yelp"
	ClassExpedia     ProviderClass = "expedia"
	ClassTripAdvisor ProviderClass = "tripadvisor"
	ClassOther       ProviderClass = "other"
)

// Markers substituted for absent optional fields. The card renderer and
// the dedup guard both depend on these being stable strings.
const (
	NoText    = "(no text)"
	NoURL     = "(none)"
	NoRating  = "N/A"
	Anonymous = "Anonymous"
)

// Review is the canonical record derived from any source payload shape.
// ID is the sole idempotency key and is immutable once assigned; every
// other field may be re-derived when the same review is processed again
// (a detail fetch can upgrade a blank Text, a re-poll can fill Rating).
type Review struct {
	ID           string        `json:"id"`
	Provider     string        `json:"provider"`
	Class        ProviderClass `json:"class"`
	Rating       *float64      `json:"rating,omitempty"`
	LocationID   string        `json:"location_id,omitempty"`
	LocationName string        `json:"location_name"`
	Author       string        `json:"author"`
	CreatedAt    string        `json:"created_at"`
	Text         string        `json:"text"`
	PublicURL    string        `json:"public_url,omitempty"`
}

// HasText reports whether the review carries real reviewer-written text
// rather than the substituted marker.
func (r Review) HasText() bool {
	return r.Text != "" && r.Text != NoText
}
