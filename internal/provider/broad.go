package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dzhechko/B2BSalesAI/internal/extract"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/brave"
)

// BraveFactory builds a Brave client for one user's key.
type BraveFactory func(apiKey string) brave.Client

// BroadSearch issues one web query and pattern-extracts facts from the
// concatenated result snippets.
type BroadSearch struct {
	newClient BraveFactory
	now       Clock
}

// NewBroadSearch creates the broad-search adapter.
func NewBroadSearch(factory BraveFactory) *BroadSearch {
	return &BroadSearch{newClient: factory, now: time.Now}
}

// WithClock overrides the clock used to date social posts.
func (a *BroadSearch) WithClock(now Clock) *BroadSearch {
	a.now = now
	return a
}

// Service implements Adapter.
func (a *BroadSearch) Service() model.Service { return model.ServiceBrave }

// Search implements Adapter.
func (a *BroadSearch) Search(ctx context.Context, query, credential string) (*model.ProviderResult, error) {
	resp, err := a.newClient(credential).WebSearch(ctx, query)
	if err != nil {
		return nil, callError(model.ServiceBrave, err)
	}

	var text strings.Builder
	items := make([]extract.Item, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		text.WriteString(r.Title)
		text.WriteString(" ")
		text.WriteString(r.Description)
		for _, s := range r.ExtraSnippets {
			text.WriteString(" ")
			text.WriteString(s)
		}
		text.WriteString("\n")
		items = append(items, extract.Item{URL: r.URL, Title: r.Title, Description: r.Description})
	}

	fields := extract.Text(strings.ToLower(text.String()))
	return &model.ProviderResult{
		Industry:    fields.Industry,
		Revenue:     fields.Revenue,
		Employees:   fields.Employees,
		Products:    extract.SplitList(fields.Products),
		JobTitle:    fields.JobTitle,
		SocialPosts: extract.SocialPosts(items, a.now()),
		Raw:         jsonPayload(resp.Raw),
	}, nil
}

// jsonPayload stores a JSON body pretty-printed, or verbatim when it does
// not parse.
func jsonPayload(body []byte) model.RawPayload {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return model.RawPayload{Encoding: "text/plain", Body: string(body)}
	}
	return model.RawPayload{Encoding: "application/json", Body: out.String()}
}

var errEmptyContent = eris.New("provider: empty response content")
