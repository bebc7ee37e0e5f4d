// Package card renders the canonical review into the fixed-layout note
// body posted on helpdesk tickets. The layout is a wire-format contract:
// agents read these lines and the dedup guard compares rendered bodies
// byte for byte, so reordering or renaming a line is a breaking change.
package card

import (
	"strconv"
	"strings"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/internal/model"
)

// Render produces the note body for a review. Pure string transform;
// trailing whitespace is trimmed on every line.
func Render(review model.Review) string {
	lines := []string{
		"Review ID: " + review.ID,
		"Provider: " + review.Provider,
		"Location: " + locationLine(review),
		"Rating: " + ratingLine(review.Rating),
		"Date: " + review.CreatedAt,
		"Review Text:",
		"",
		textLine(review.Text),
		"",
		"Public URL:",
		urlLine(review.PublicURL),
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func locationLine(review model.Review) string {
	id := review.LocationID
	if id == "" {
		id = "n/a"
	}
	return review.LocationName + " (" + id + ")"
}

func ratingLine(rating *float64) string {
	if rating == nil {
		return model.NoRating + "★"
	}
	return strconv.FormatFloat(*rating, 'f', -1, 64) + "★"
}

func textLine(text string) string {
	if text == "" {
		return model.NoText
	}
	return text
}

func urlLine(url string) string {
	if url == "" {
		return model.NoURL
	}
	return url
}
