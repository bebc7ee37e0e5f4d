package chatmeter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", WithBaseURL(srv.URL))
}

func TestListReviews(t *testing.T) {
	since := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/reviews", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2024-06-01T00:00:00Z", r.URL.Query().Get("updatedSince"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]any{
			"reviews": []any{
				map[string]any{"reviewId": "r-1", "rating": 5},
				map[string]any{"reviewId": "r-2", "rating": 2},
			},
		})
	})

	reviews, err := c.ListReviews(context.Background(), since, 50)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "r-1", reviews[0]["reviewId"])
}

func TestListReviews_ShapeVariants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"data envelope", `{"data":[{"id":"a"}]}`, 1},
		{"bare array", `[{"id":"a"},{"id":"b"}]`, 2},
		{"envelope without list", `{"total":0}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			reviews, err := c.ListReviews(context.Background(), time.Time{}, 0)
			require.NoError(t, err)
			assert.Len(t, reviews, tt.want)
		})
	}
}

func TestGetReview_UnwrapsNestedRecord(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reviews/r-1", r.URL.Path)
		w.Write([]byte(`{"review":{"reviewId":"r-1","text":"Great spot"}}`))
	})

	review, err := c.GetReview(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "Great spot", review["text"])
}

func TestGetReview_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	_, err := c.GetReview(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestPostReply(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reviews/r-1/responses", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Thanks for the kind words!", req["text"])

		w.WriteHeader(http.StatusCreated)
	})

	err := c.PostReply(context.Background(), "r-1", "Thanks for the kind words!")
	assert.NoError(t, err)
}

func TestRetryDo_RetriesTransientStatus(t *testing.T) {
	attempts := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"reviews":[]}`))
	})

	reviews, err := c.ListReviews(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Equal(t, 3, attempts)
}
