// Package chatmeter provides a client for the Chatmeter reviews API.
// Review payload shapes are not stable across providers, so list and
// detail results are returned as raw maps and normalized downstream.
package chatmeter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://live.chatmeter.com/v5"

// Client defines the Chatmeter operations the bridge consumes.
type Client interface {
	// ListReviews returns reviews updated since the given time, newest
	// first on a best-effort basis.
	ListReviews(ctx context.Context, since time.Time, limit int) ([]map[string]any, error)
	// GetReview fetches the full payload for one review; used to
	// backfill text the list view omits.
	GetReview(ctx context.Context, id string) (map[string]any, error)
	// PostReply publishes a public reply to a review. Pass-through
	// write, no normalization involved.
	PostReply(ctx context.Context, reviewID, text string) error
}

// APIError is returned when Chatmeter responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chatmeter: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
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

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Chatmeter client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo executes the request with exponential backoff on transport
// errors and retryable statuses. The request body, if any, must be
// rebuildable via GetBody for clones to carry it.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, 0, eris.Wrap(err, "chatmeter: rebuild request body")
			}
			retryReq.Body = body
		}

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "chatmeter: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("chatmeter: status %d: %s", resp.StatusCode, string(body))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "chatmeter: create request")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrapf(err, "chatmeter: GET %s", path)
	}
	if statusCode != http.StatusOK {
		return nil, &APIError{StatusCode: statusCode, Body: string(body)}
	}
	return body, nil
}

func (c *httpClient) ListReviews(ctx context.Context, since time.Time, limit int) ([]map[string]any, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("updatedSince", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.get(ctx, "/reviews", query)
	if err != nil {
		return nil, err
	}
	return decodeReviewList(body)
}

func (c *httpClient) GetReview(ctx context.Context, id string) (map[string]any, error) {
	body, err := c.get(ctx, "/reviews/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "chatmeter: unmarshal review")
	}
	// Some deployments nest the record under "review".
	if nested, ok := payload["review"].(map[string]any); ok {
		return nested, nil
	}
	return payload, nil
}

func (c *httpClient) PostReply(ctx context.Context, reviewID, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return eris.Wrap(err, "chatmeter: marshal reply")
	}

	reqURL := c.baseURL + "/reviews/" + url.PathEscape(reviewID) + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "chatmeter: create reply request")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return eris.Wrapf(err, "chatmeter: post reply %s", reviewID)
	}
	if statusCode != http.StatusOK && statusCode != http.StatusCreated {
		return &APIError{StatusCode: statusCode, Body: string(body)}
	}
	return nil
}

// decodeReviewList accepts the shapes Chatmeter has been observed to
// return: {"reviews":[...]}, {"data":[...]}, or a bare top-level array.
func decodeReviewList(body []byte) ([]map[string]any, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"reviews", "data", "results"} {
			if arr, ok := envelope[key].([]any); ok {
				return mapSlice(arr), nil
			}
		}
		// Envelope without a recognized list key: no reviews.
		return nil, nil
	}

	var arr []any
	if err := json.Unmarshal(body, &arr); err != nil {
		return nil, eris.Wrap(err, "chatmeter: unmarshal review list")
	}
	return mapSlice(arr), nil
}

func mapSlice(arr []any) []map[string]any {
	out := make([]map[string]any, 0, len(arr))
	for _, elem := range arr {
		if m, ok := elem.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
