// Package amocrm is a client for the amoCRM v4 REST API.
package amocrm

import (
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

// Client reads contacts and companies from one amoCRM account.
type Client interface {
	// ListContacts pages through every contact with embedded company
	// references.
	ListContacts(ctx context.Context) ([]Contact, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
}

// Company is the subset of an amoCRM company the enrichment core reads.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type contactsPage struct {
	Embedded struct {
		Contacts []json.RawMessage `json:"contacts"`
	} `json:"_embedded"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the account URL derived from the subdomain.
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

// WithMaxPages caps how many contact pages ListContacts reads.
func WithMaxPages(n int) Option {
	return func(c *httpClient) {
		c.maxPages = n
	}
}

const pageSize = 250

type httpClient struct {
	token    string
	baseURL  string
	maxPages int
	http     *http.Client
}

// NewClient creates a client for https://<subdomain>.amocrm.ru using a
// long-lived access token.
func NewClient(subdomain, token string, opts ...Option) Client {
	c := &httpClient{
		token:    token,
		baseURL:  fmt.Sprintf("https://%s.amocrm.ru", subdomain),
		maxPages: 40,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) ListContacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	for page := 1; page <= c.maxPages; page++ {
		params := url.Values{}
		params.Set("with", "companies")
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))

		body, status, err := c.get(ctx, "/api/v4/contacts?"+params.Encode())
		if err != nil {
			return nil, eris.Wrapf(err, "amocrm: list contacts page %d", page)
		}
		// amoCRM answers an empty page with 204 and no body.
		if status == http.StatusNoContent {
			break
		}

		var p contactsPage
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, eris.Wrap(err, "amocrm: unmarshal contacts")
		}
		for _, raw := range p.Embedded.Contacts {
			var ct Contact
			if err := json.Unmarshal(raw, &ct); err != nil {
				return nil, eris.Wrap(err, "amocrm: unmarshal contact")
			}
			ct.Raw = append(json.RawMessage(nil), raw...)
			out = append(out, ct)
		}
		if p.Links.Next == nil || len(p.Embedded.Contacts) < pageSize {
			break
		}
	}
	return out, nil
}

func (c *httpClient) GetCompany(ctx context.Context, id int64) (*Company, error) {
	body, status, err := c.get(ctx, "/api/v4/companies/"+strconv.FormatInt(id, 10))
	if err != nil {
		return nil, eris.Wrapf(err, "amocrm: get company %d", id)
	}
	if status == http.StatusNoContent {
		return nil, eris.Errorf("amocrm: get company %d: unexpected status 204", id)
	}
	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, eris.Wrap(err, "amocrm: unmarshal company")
	}
	return &company, nil
}

func (c *httpClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "read response")
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return body, resp.StatusCode, nil
	default:
		return nil, resp.StatusCode, eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
