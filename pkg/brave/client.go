// Package brave is a client for the Brave Search web API.
package brave

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.search.brave.com/res/v1"

// Client performs Brave web searches.
type Client interface {
	WebSearch(ctx context.Context, query string) (*SearchResponse, error)
}

// SearchResponse is the subset of the web search response the collector reads.
type SearchResponse struct {
	Query Query   `json:"query"`
	Web   WebData `json:"web"`

	// Raw is the verbatim response body.
	Raw json.RawMessage `json:"-"`
}

// Query echoes the executed query.
type Query struct {
	Original string `json:"original"`
}

// WebData holds the organic web results.
type WebData struct {
	Results []Result `json:"results"`
}

// Result is one organic web result.
type Result struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	Age           string   `json:"age,omitempty"`
	ExtraSnippets []string `json:"extra_snippets,omitempty"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithCount sets the number of results requested per query.
func WithCount(n int) Option {
	return func(c *httpClient) {
		c.count = n
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	count   int
	http    *http.Client
}

// NewClient creates a Brave Search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		count:   10,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) WebSearch(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if c.count > 0 {
		params.Set("count", strconv.Itoa(c.count))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "brave: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "brave: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "brave: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("brave: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "brave: unmarshal response")
	}
	result.Raw = json.RawMessage(body)

	return &result, nil
}
