package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestCursor_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.GetCursor(ctx, "reviews")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetCursor(ctx, "reviews", ts))

	got, err = s.GetCursor(ctx, "reviews")
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))
}

func TestCursor_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)
	require.NoError(t, s.SetCursor(ctx, "reviews", first))
	require.NoError(t, s.SetCursor(ctx, "reviews", second))

	got, err := s.GetCursor(ctx, "reviews")
	require.NoError(t, err)
	assert.True(t, second.Equal(got))
}

func TestCursor_NamespacedByName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetCursor(ctx, "loc-a", ts))

	got, err := s.GetCursor(ctx, "loc-b")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestDeadLetters_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry := DeadLetter{
		ReviewID:  "abc123",
		Payload:   json.RawMessage(`{"review_id":"abc123"}`),
		Reason:    "helpdesk unavailable",
		ErrorType: "transient",
	}
	require.NoError(t, s.AddDeadLetter(ctx, entry))

	entries, err := s.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "abc123", entries[0].ReviewID)
	assert.JSONEq(t, `{"review_id":"abc123"}`, string(entries[0].Payload))
	assert.Equal(t, "transient", entries[0].ErrorType)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestDeadLetters_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.AddDeadLetter(ctx, DeadLetter{
		ReviewID: "abc123",
		Payload:  json.RawMessage(`{}`),
		Reason:   "boom",
	}))

	entries, err := s.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, s.DeleteDeadLetter(ctx, entries[0].ID))

	entries, err = s.ListDeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDeadLetters_DeleteMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	assert.Error(t, s.DeleteDeadLetter(ctx, "no-such-id"))
}

func TestDeadLetters_ListLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddDeadLetter(ctx, DeadLetter{
			ReviewID:  "r",
			Payload:   json.RawMessage(`{}`),
			Reason:    "boom",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := s.ListDeadLetters(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
