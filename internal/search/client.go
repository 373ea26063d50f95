// Package search is the facade over the document-oriented search backend.
// It issues parameterized search requests and returns raw hit documents and
// aggregation values; no metric logic lives here.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// maxScrollPages caps deep pagination so a backend that keeps returning
// non-empty pages cannot stall a metric computation forever.
const maxScrollPages = 1000

// Hit is a single ranked document returned by the backend. Source is left
// raw for the caller to decode; Sort carries the deep-pagination cursor.
type Hit struct {
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort"`
}

// Hits is the ranked hit list of a response.
type Hits struct {
	Hits []Hit `json:"hits"`
}

// AggValue is a single-valued aggregation result (cardinality, sum).
type AggValue struct {
	Value float64 `json:"value"`
}

// Response is the decoded body of a search request.
type Response struct {
	Hits         Hits                `json:"hits"`
	Aggregations map[string]AggValue `json:"aggregations"`
}

// Client talks to the search backend over HTTP.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *logrus.Logger

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// ClientOption allows configuring the search client.
type ClientOption func(*Client)

// WithRetryConfig configures retry behavior for transport and server errors.
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
	}
}

// WithHTTPClient overrides the underlying HTTP client, used by tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.client = httpClient
	}
}

// NewClient creates a search client for the backend at baseURL. When token is
// non-empty, requests carry it as a bearer token.
func NewClient(baseURL, token string, logger *logrus.Logger, opts ...ClientOption) *Client {
	httpClient := &http.Client{Timeout: 120 * time.Second}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 120 * time.Second
	}

	client := &Client{
		client:         httpClient,
		baseURL:        strings.TrimRight(baseURL, "/"),
		logger:         logger,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     time.Minute,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Search executes one search request against the given index. The body is an
// opaque query object produced by the builders in this package.
func (c *Client) Search(ctx context.Context, index string, body map[string]any) (*Response, error) {
	if index == "" {
		return nil, NewBackendError(0, "index cannot be empty", nil)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/_search", c.baseURL, url.PathEscape(index))

	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = NewBackendError(0, "request failed", err)
			c.logger.Warnf("Search attempt %d against %s failed: %v", attempt+1, index, err)
			time.Sleep(backoff)
			backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = NewBackendError(resp.StatusCode, "failed to read response body", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = NewBackendError(resp.StatusCode, string(respBody), nil)
			if resp.StatusCode >= 500 {
				c.logger.Warnf("Search against %s returned status %d, retrying", index, resp.StatusCode)
				time.Sleep(backoff)
				backoff = time.Duration(math.Min(float64(backoff*2), float64(c.maxBackoff)))
				continue
			}
			return nil, lastErr
		}

		var result Response
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, NewBackendError(resp.StatusCode, "failed to decode response", err)
		}

		return &result, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Scroll pages through an index with search_after pagination. nextQuery
// builds the query body for the given cursor (nil on the first page) and
// handle receives each non-empty page. Scrolling terminates on the first
// empty page and proceeds strictly sequentially: every cursor comes from the
// last hit of the prior page. A non-empty page without a sort cursor, or a
// scroll running past the page ceiling, is a protocol error.
func (c *Client) Scroll(ctx context.Context, index string, nextQuery func(searchAfter []any) map[string]any, handle func(hits []Hit) error) error {
	var searchAfter []any

	for page := 1; ; page++ {
		if page > maxScrollPages {
			return NewProtocolError(index, page, "page ceiling exceeded")
		}

		resp, err := c.Search(ctx, index, nextQuery(searchAfter))
		if err != nil {
			return err
		}

		hits := resp.Hits.Hits
		if len(hits) == 0 {
			return nil
		}

		if err := handle(hits); err != nil {
			return err
		}

		cursor := hits[len(hits)-1].Sort
		if len(cursor) == 0 {
			return NewProtocolError(index, page, "non-empty page without sort cursor")
		}
		searchAfter = cursor
	}
}
