// Package zendesk provides a client for the helpdesk ticket API. The
// bridge treats the helpdesk as five operations: search, bulk lookup by
// external id, create (idempotent), update, and audit listing.
package zendesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the helpdesk operations the bridge consumes.
type Client interface {
	// SearchTickets runs a free-text search query, e.g.
	// `type:ticket external_id:"chatmeter:abc123"`.
	SearchTickets(ctx context.Context, query string) ([]Ticket, error)
	// ShowManyByExternalID fetches tickets carrying any of the given
	// external ids. Cheapest and most specific lookup.
	ShowManyByExternalID(ctx context.Context, externalIDs []string) ([]Ticket, error)
	// CreateTicket creates a ticket. The idempotency key is sent as a
	// request header so a retried create cannot mint a second ticket.
	CreateTicket(ctx context.Context, req TicketRequest, idempotencyKey string) (*Ticket, error)
	// UpdateTicket applies fields to an existing ticket, including
	// appending a comment or closing it.
	UpdateTicket(ctx context.Context, id int64, req TicketRequest) (*Ticket, error)
	// ListAudits returns the ticket's append-only event log.
	ListAudits(ctx context.Context, ticketID int64) ([]Audit, error)
	// UpdateComment overwrites the body of an existing comment. Used by
	// fix mode when a re-poll finds better review text.
	UpdateComment(ctx context.Context, ticketID, commentID int64, body string) error
}

// APIError is returned when the helpdesk responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zendesk: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the helpdesk.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return eris.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the derived base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	baseURL  string
	email    string
	apiToken string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a helpdesk client for the given subdomain using
// email/token basic auth. The default rate limit stays under the
// platform's 700 req/min account ceiling.
func NewClient(subdomain, email, apiToken string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  fmt.Sprintf("https://%s.zendesk.com/api/v2", subdomain),
		email:    email,
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, payload any, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "zendesk: rate limiter")
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrap(err, "zendesk: marshal request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, eris.Wrap(err, "zendesk: create request")
	}
	req.SetBasicAuth(c.email+"/token", c.apiToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "zendesk: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "zendesk: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (c *httpClient) SearchTickets(ctx context.Context, query string) ([]Ticket, error) {
	q := url.Values{}
	q.Set("query", query)

	raw, err := c.do(ctx, http.MethodGet, "/search.json", q, nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Results []Ticket `json:"results"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "zendesk: unmarshal search results")
	}
	return result.Results, nil
}

func (c *httpClient) ShowManyByExternalID(ctx context.Context, externalIDs []string) ([]Ticket, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("external_ids", strings.Join(externalIDs, ","))

	raw, err := c.do(ctx, http.MethodGet, "/tickets/show_many.json", q, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var result struct {
		Tickets []Ticket `json:"tickets"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "zendesk: unmarshal tickets")
	}
	return result.Tickets, nil
}

func (c *httpClient) CreateTicket(ctx context.Context, req TicketRequest, idempotencyKey string) (*Ticket, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}

	raw, err := c.do(ctx, http.MethodPost, "/tickets.json", nil, map[string]TicketRequest{"ticket": req}, headers)
	if err != nil {
		return nil, err
	}
	return unmarshalTicket(raw)
}

func (c *httpClient) UpdateTicket(ctx context.Context, id int64, req TicketRequest) (*Ticket, error) {
	path := "/tickets/" + strconv.FormatInt(id, 10) + ".json"
	raw, err := c.do(ctx, http.MethodPut, path, nil, map[string]TicketRequest{"ticket": req}, nil)
	if err != nil {
		return nil, err
	}
	return unmarshalTicket(raw)
}

func (c *httpClient) ListAudits(ctx context.Context, ticketID int64) ([]Audit, error) {
	path := "/tickets/" + strconv.FormatInt(ticketID, 10) + "/audits.json"
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Audits []Audit `json:"audits"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "zendesk: unmarshal audits")
	}
	return result.Audits, nil
}

func (c *httpClient) UpdateComment(ctx context.Context, ticketID, commentID int64, body string) error {
	path := "/tickets/" + strconv.FormatInt(ticketID, 10) + "/comments/" + strconv.FormatInt(commentID, 10) + ".json"
	payload := map[string]map[string]string{"comment": {"body": body}}
	_, err := c.do(ctx, http.MethodPut, path, nil, payload, nil)
	return err
}

func unmarshalTicket(raw []byte) (*Ticket, error) {
	var result struct {
		Ticket Ticket `json:"ticket"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "zendesk: unmarshal ticket")
	}
	return &result.Ticket, nil
}
