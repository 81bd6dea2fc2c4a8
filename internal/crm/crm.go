// Package crm resolves company names and syncs contacts from the CRMs a
// user has connected.
package crm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/amocrm"
)

// Source names a CRM contacts can be synced from.
type Source string

const (
	SourceAmoCRM     Source = "amocrm"
	SourceSalesforce Source = "salesforce"
)

// ParseSource validates a source name. Empty means amoCRM.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceAmoCRM:
		return SourceAmoCRM, nil
	case SourceSalesforce:
		return SourceSalesforce, nil
	default:
		return "", eris.Errorf("crm: unknown source %q", s)
	}
}

// AmoFactory builds an amoCRM client for one account.
type AmoFactory func(subdomain, token string) amocrm.Client

// CredentialStore returns a user's stored keys.
type CredentialStore interface {
	GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error)
}

// DefaultAmoFactory creates real amoCRM clients.
func DefaultAmoFactory(subdomain, token string) amocrm.Client {
	return amocrm.NewClient(subdomain, token)
}

// payloadRef is the union of the fields both CRMs leave in a contact's
// stored payload that point at its company.
type payloadRef struct {
	AccountID string `json:"AccountId"`
	Embedded  struct {
		Companies []amocrm.CompanyRef `json:"companies"`
	} `json:"_embedded"`
}

func parsePayload(raw json.RawMessage) (payloadRef, bool) {
	var p payloadRef
	if len(raw) == 0 {
		return p, false
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false
	}
	return p, true
}

func amoConfigured(c *model.Credentials) bool {
	return c != nil && c.AmoCRMKey != "" && c.AmoCRMSubdomain != ""
}
