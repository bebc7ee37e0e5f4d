package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPick_ExactKeyBeforePattern(t *testing.T) {
	flat := FlatMap{
		"reviewid":   "from-exact",
		"nested.id":  "from-pattern",
	}
	v, ok := Pick(flat, IDCandidates)
	require.True(t, ok)
	assert.Equal(t, "from-exact", v)
}

func TestPick_SkipsEmptyValues(t *testing.T) {
	flat := FlatMap{
		"text":    "   ",
		"comment": "an actual comment",
	}
	v, ok := Pick(flat, TextCandidates)
	require.True(t, ok)
	assert.Equal(t, "an actual comment", v)
}

func TestPick_TextBeforeComment(t *testing.T) {
	// Candidate-list order decides, not payload key order: the "text"
	// family is configured ahead of the "comment" family.
	flat := Flatten(map[string]any{
		"review": map[string]any{
			"comment": "Really great stay overall",
			"text":    "ok",
		},
	})
	v, ok := Pick(flat, TextCandidates)
	require.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestPick_NoMatch(t *testing.T) {
	_, ok := Pick(FlatMap{"unrelated": "x"}, RatingCandidates)
	assert.False(t, ok)
}

func TestPickString_TrimsAndStringifies(t *testing.T) {
	flat := FlatMap{"rating": float64(5)}
	s, ok := PickString(flat, RatingCandidates)
	require.True(t, ok)
	assert.Equal(t, "5", s)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("  \t "))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty(float64(0)))
}
