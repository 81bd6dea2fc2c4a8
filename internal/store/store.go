// Package store persists contacts, user settings and API credentials.
package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

// Store defines the persistence interface for contacts, preferences and
// credentials.
type Store interface {
	// Contacts
	UpsertContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
	GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error)
	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	SaveCollectedData(ctx context.Context, userID, contactID int64, data *model.CollectedData) (*model.Contact, error)
	SaveRecommendations(ctx context.Context, userID, contactID int64, recs []model.Recommendation) (*model.Contact, error)

	// Preferences
	GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error)
	SaveSettings(ctx context.Context, s *model.UserSettings) error

	// Credentials
	GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error)
	SaveCredentials(ctx context.Context, c *model.Credentials) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const contactColumns = `id, user_id, crm_id, name, email, phone, position, company, status, crm_data, collected_data, recommendations, last_updated`

func contactNotFound(contactID int64) error {
	return &model.NotFoundError{Entity: "contact", ID: strconv.FormatInt(contactID, 10)}
}

// decodeContactJSON fills the JSON-backed columns of c. Empty input leaves
// the field unset.
func decodeContactJSON(c *model.Contact, crmData, collected, recs []byte) error {
	if len(crmData) > 0 {
		c.CRMData = json.RawMessage(append([]byte(nil), crmData...))
	}
	if len(collected) > 0 && string(collected) != "null" {
		c.CollectedData = &model.CollectedData{}
		if err := json.Unmarshal(collected, c.CollectedData); err != nil {
			return eris.Wrap(err, "store: unmarshal collected data")
		}
	}
	if len(recs) > 0 && string(recs) != "null" {
		if err := json.Unmarshal(recs, &c.Recommendations); err != nil {
			return eris.Wrap(err, "store: unmarshal recommendations")
		}
	}
	return nil
}

func encodeSearchSystems(s []model.Service) (string, error) {
	if s == nil {
		s = []model.Service{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal search systems")
	}
	return string(b), nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
