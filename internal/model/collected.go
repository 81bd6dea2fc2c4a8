package model

import (
	"strings"
	"time"
)

// Service identifies an external search provider.
type Service string

const (
	ServiceBrave      Service = "brave"
	ServicePerplexity Service = "perplexity"
)

// AllServices lists the search providers in their fixed invocation order.
var AllServices = []Service{ServiceBrave, ServicePerplexity}

// Valid reports whether s names a known provider.
func (s Service) Valid() bool {
	for _, known := range AllServices {
		if s == known {
			return true
		}
	}
	return false
}

// Phase is a stage of a collection run that issues provider queries.
type Phase string

const (
	PhaseCompany Phase = "company"
	PhaseContact Phase = "contact"
)

// QueryStatus is the outcome of one provider invocation.
type QueryStatus string

const (
	QueryStatusOK     QueryStatus = "ok"
	QueryStatusFailed QueryStatus = "failed"
)

// Source is where a collected value came from. Higher ranks win on merge.
type Source string

const (
	SourceBroadSearch Source = "broad_search"
	SourceAISearch    Source = "ai_search"
	SourceRefiner     Source = "refiner"
)

// Rank returns the merge precedence of the source: broad search < AI search < refiner.
func (s Source) Rank() int {
	switch s {
	case SourceBroadSearch:
		return 1
	case SourceAISearch:
		return 2
	case SourceRefiner:
		return 3
	default:
		return 0
	}
}

// SourceFor maps a provider to its precedence source.
func SourceFor(s Service) Source {
	switch s {
	case ServiceBrave:
		return SourceBroadSearch
	case ServicePerplexity:
		return SourceAISearch
	default:
		return ""
	}
}

// Field names used as keys of CollectedData.FieldSources.
const (
	FieldIndustry       = "industry"
	FieldRevenue        = "revenue"
	FieldEmployees      = "employees"
	FieldProducts       = "products"
	FieldJobTitle       = "jobTitle"
	FieldSocialPosts    = "socialPosts"
	FieldCompanySummary = "companySummary"
	FieldContactSummary = "contactSummary"
)

// RawPayload is a verbatim provider response kept as an opaque blob.
type RawPayload struct {
	Encoding string `json:"encoding"`
	Body     string `json:"body"`
}

// Empty reports whether the payload carries no body.
func (p *RawPayload) Empty() bool {
	return p == nil || p.Body == ""
}

// SocialPost is a recent public post attributed to a contact.
type SocialPost struct {
	Platform string `json:"platform"`
	Date     string `json:"date"`
	Content  string `json:"content"`
}

// QueryRecord is the audit entry for one attempted provider invocation.
type QueryRecord struct {
	Service     Service     `json:"service"`
	Phase       Phase       `json:"phase"`
	Query       string      `json:"query"`
	Response    string      `json:"response"`
	Status      QueryStatus `json:"status"`
	RawResponse *RawPayload `json:"rawResponse,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// CollectedData is the merged enrichment result of the latest collection run.
// Empty values are absent.
type CollectedData struct {
	Industry       string            `json:"industry,omitempty"`
	Revenue        string            `json:"revenue,omitempty"`
	Employees      string            `json:"employees,omitempty"`
	Products       []string          `json:"products,omitempty"`
	JobTitle       string            `json:"jobTitle,omitempty"`
	SocialPosts    []SocialPost      `json:"socialPosts,omitempty"`
	CompanySummary string            `json:"companySummary,omitempty"`
	ContactSummary string            `json:"contactSummary,omitempty"`
	FieldSources   map[string]Source `json:"fieldSources,omitempty"`
	SearchQueries  []QueryRecord     `json:"searchQueries"`
}

// NewCollectedData returns an empty record with an initialised audit trail.
func NewCollectedData() *CollectedData {
	return &CollectedData{
		FieldSources:  make(map[string]Source),
		SearchQueries: []QueryRecord{},
	}
}

// AppendQuery adds a record to the audit trail. Records are never reordered or removed.
func (c *CollectedData) AppendQuery(rec QueryRecord) {
	c.SearchQueries = append(c.SearchQueries, rec)
}

// ProviderResult is the transient structured output of one provider call.
// Empty fields mean the provider found nothing for them.
type ProviderResult struct {
	Industry       string
	Revenue        string
	Employees      string
	Products       []string
	JobTitle       string
	SocialPosts    []SocialPost
	CompanySummary string
	ContactSummary string
	Raw            RawPayload
}

// Summary renders the structured part of the result for the audit trail.
func (r *ProviderResult) Summary() string {
	if r == nil {
		return ""
	}
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add(FieldIndustry, r.Industry)
	add(FieldRevenue, r.Revenue)
	add(FieldEmployees, r.Employees)
	if len(r.Products) > 0 {
		add(FieldProducts, strings.Join(r.Products, ", "))
	}
	add(FieldJobTitle, r.JobTitle)
	if len(r.SocialPosts) > 0 {
		posts := make([]string, 0, len(r.SocialPosts))
		for _, p := range r.SocialPosts {
			posts = append(posts, p.Platform+" "+p.Date+" "+p.Content)
		}
		add(FieldSocialPosts, strings.Join(posts, "; "))
	}
	add(FieldCompanySummary, r.CompanySummary)
	add(FieldContactSummary, r.ContactSummary)
	return strings.Join(parts, "\n")
}
