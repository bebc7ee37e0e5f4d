package zendesk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("drivo", "ops@drivo.com", "test-token",
		WithBaseURL(srv.URL), WithRateLimit(1000, 1000))
}

func TestSearchTickets(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, `type:ticket external_id:"chatmeter:abc123"`, r.URL.Query().Get("query"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "ops@drivo.com/token", user)
		assert.Equal(t, "test-token", pass)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{map[string]any{"id": 42, "external_id": "chatmeter:abc123"}},
		})
	})

	tickets, err := c.SearchTickets(context.Background(), `type:ticket external_id:"chatmeter:abc123"`)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(42), tickets[0].ID)
}

func TestShowManyByExternalID(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets/show_many.json", r.URL.Path)
		assert.Equal(t, "chatmeter:a,chatmeter:b", r.URL.Query().Get("external_ids"))
		json.NewEncoder(w).Encode(map[string]any{
			"tickets": []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
		})
	})

	tickets, err := c.ShowManyByExternalID(context.Background(), []string{"chatmeter:a", "chatmeter:b"})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestShowManyByExternalID_Empty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty id list")
	})
	tickets, err := c.ShowManyByExternalID(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, tickets)
}

func TestShowManyByExternalID_NotFoundIsEmpty(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	tickets, err := c.ShowManyByExternalID(context.Background(), []string{"chatmeter:x"})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestCreateTicket_SendsIdempotencyKey(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tickets.json", r.URL.Path)
		assert.Equal(t, "chatmeter:abc123", r.Header.Get("Idempotency-Key"))

		var req map[string]TicketRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chatmeter:abc123", req["ticket"].ExternalID)
		require.NotNil(t, req["ticket"].Comment)
		assert.False(t, req["ticket"].Comment.Public)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"ticket": map[string]any{"id": 99}})
	})

	ticket, err := c.CreateTicket(context.Background(), TicketRequest{
		Subject:    "Yelp review",
		ExternalID: "chatmeter:abc123",
		Comment:    &Comment{Body: "card body", Public: false},
	}, "chatmeter:abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(99), ticket.ID)
}

func TestUpdateTicket(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tickets/42.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"ticket": map[string]any{"id": 42, "status": "closed"}})
	})

	ticket, err := c.UpdateTicket(context.Background(), 42, TicketRequest{Status: "closed"})
	require.NoError(t, err)
	assert.Equal(t, "closed", ticket.Status)
}

func TestListAudits(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tickets/42/audits.json", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"audits": []any{
				map[string]any{
					"id": 1, "ticket_id": 42,
					"events": []any{map[string]any{"id": 10, "type": "Comment", "body": "card body"}},
				},
			},
		})
	})

	audits, err := c.ListAudits(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	require.Len(t, audits[0].Events, 1)
	assert.Equal(t, EventTypeComment, audits[0].Events[0].Type)
	assert.Equal(t, "card body", audits[0].Events[0].Body)
}

func TestUpdateComment(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tickets/42/comments/10.json", r.URL.Path)

		var req map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "replacement body", req["comment"]["body"])

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})

	err := c.UpdateComment(context.Background(), 42, 10, "replacement body")
	assert.NoError(t, err)
}

func TestAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"RecordInvalid"}`))
	})

	_, err := c.CreateTicket(context.Background(), TicketRequest{}, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "RecordInvalid")
}
