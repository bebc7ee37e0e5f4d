// Package normalize composes the field extractor's output into the
// canonical Review record. Normalize is pure and total: malformed input
// yields defaults, never a panic; the only reportable failure is a
// payload with no usable review id.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/extract"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/locations"
	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/model"
)

// ErrNoReviewID is returned when no candidate resolves a review id.
// Callers at the HTTP boundary surface it as a client error.
var ErrNoReviewID = eris.New("normalize: no usable review id in payload")

// Options control normalization behavior.
type Options struct {
	// Now supplies the default timestamp; injectable so normalization
	// stays deterministic under test.
	Now func() time.Time

	// StrictText applies the human-text heuristic to candidate text and
	// falls back to a deep scan when it fails. The poller enables this;
	// list endpoints routinely put ids and URLs under comment keys.
	StrictText bool

	// Locations resolves location ids to display names.
	Locations *locations.Table
}

// Option mutates Options.
type Option func(*Options)

// WithClock injects the current-time source.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithStrictText enables the human-text heuristic on extracted text.
func WithStrictText() Option {
	return func(o *Options) { o.StrictText = true }
}

// WithLocations supplies the location lookup table.
func WithLocations(t *locations.Table) Option {
	return func(o *Options) { o.Locations = t }
}

// Normalize derives the canonical Review from any source payload shape.
func Normalize(payload any, opts ...Option) (model.Review, error) {
	o := Options{Now: time.Now, Locations: locations.Empty()}
	for _, opt := range opts {
		opt(&o)
	}

	flat := extract.Flatten(payload)

	id, ok := extract.PickString(flat, extract.IDCandidates)
	if !ok {
		return model.Review{}, ErrNoReviewID
	}

	provider, ok := extract.PickString(flat, extract.ProviderCandidates)
	if ok {
		provider = strings.ToUpper(provider)
	} else {
		provider = extract.InferOrigin(flat)
	}

	review := model.Review{
		ID:       id,
		Provider: provider,
		Class:    Classify(provider),
		Rating:   pickRating(flat),
	}

	review.LocationID, _ = extract.PickString(flat, extract.LocationIDCandidates)
	review.LocationName = resolveLocationName(flat, review.LocationID, o.Locations)

	if author, ok := extract.PickString(flat, extract.AuthorCandidates); ok {
		review.Author = author
	} else {
		review.Author = model.Anonymous
	}

	if created, ok := extract.PickString(flat, extract.DateCandidates); ok {
		review.CreatedAt = created
	} else {
		review.CreatedAt = o.Now().UTC().Format(time.RFC3339)
	}

	review.Text = pickText(flat, payload, o.StrictText)
	review.PublicURL, _ = extract.PickString(flat, extract.URLCandidates)

	return review, nil
}

func pickRating(flat extract.FlatMap) *float64 {
	s, ok := extract.PickString(flat, extract.RatingCandidates)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func pickText(flat extract.FlatMap, payload any, strict bool) string {
	text, ok := extract.PickString(flat, extract.TextCandidates)
	if ok && (!strict || extract.LooksLikeText(text)) {
		return text
	}
	// Named candidates yielded nothing usable; scan every string leaf.
	if deep, ok := extract.DeepText(payload); ok {
		return deep
	}
	return model.NoText
}

func resolveLocationName(flat extract.FlatMap, locationID string, table *locations.Table) string {
	if name, ok := extract.PickString(flat, extract.LocationNameCandidates); ok {
		return name
	}
	if alias := table.Alias(locationID); alias != "" {
		return alias
	}
	if locationID != "" {
		return "Location " + locationID
	}
	return "Unknown Location"
}

// Classify buckets a provider name into the coarse internal
// categorization. Deliberately coarser than the display name: anything
// unrecognized is ClassOther, and TripAdvisor needs both fragments so
// "trip.com" does not match.
func Classify(provider string) model.ProviderClass {
	p := strings.ToLower(provider)
	switch {
	case strings.Contains(p, "google"):
		return model.ClassGoogle
	case strings.Contains(p, "yelp"):
		return model.ClassYelp
	case strings.Contains(p, "expedia"):
		return model.ClassExpedia
	case strings.Contains(p, "trip") && strings.Contains(p, "advisor"):
		return model.ClassTripAdvisor
	default:
		return model.ClassOther
	}
}
