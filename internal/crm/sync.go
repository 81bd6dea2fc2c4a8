package crm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/amocrm"
	"github.com/dzhechko/B2BSalesAI/pkg/salesforce"
)

// Store is the persistence sync writes through.
type Store interface {
	CredentialStore
	UpsertContact(ctx context.Context, c *model.Contact) (*model.Contact, error)
}

// Syncer pulls contacts from a CRM and upserts them for one user.
type Syncer struct {
	store  Store
	newAmo AmoFactory
	sf     salesforce.Client
}

// NewSyncer creates a Syncer. sf may be nil when Salesforce is not connected.
func NewSyncer(st Store, newAmo AmoFactory, sf salesforce.Client) *Syncer {
	if newAmo == nil {
		newAmo = DefaultAmoFactory
	}
	return &Syncer{store: st, newAmo: newAmo, sf: sf}
}

// Sync imports every contact from source. Existing contacts are refreshed in
// place and keep their collected data and recommendations.
func (s *Syncer) Sync(ctx context.Context, userID int64, source Source) ([]model.Contact, error) {
	switch source {
	case SourceSalesforce:
		return s.syncSalesforce(ctx, userID)
	default:
		return s.syncAmoCRM(ctx, userID)
	}
}

func (s *Syncer) syncAmoCRM(ctx context.Context, userID int64) ([]model.Contact, error) {
	creds, err := s.store.GetCredentials(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: load credentials")
	}
	if !amoConfigured(creds) {
		return nil, &model.ConfigurationError{Reason: "amoCRM credentials not configured"}
	}

	client := s.newAmo(creds.AmoCRMSubdomain, creds.AmoCRMKey)
	remote, err := client.ListContacts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch amoCRM contacts")
	}

	log := zap.L().With(zap.Int64("user_id", userID), zap.String("source", string(SourceAmoCRM)))
	companies := make(map[int64]string)

	out := make([]model.Contact, 0, len(remote))
	for i := range remote {
		rc := &remote[i]
		c := &model.Contact{
			UserID:   userID,
			CRMID:    strconv.FormatInt(rc.ID, 10),
			Name:     rc.DisplayName(),
			Email:    rc.Field(amocrm.FieldEmail),
			Phone:    rc.Field(amocrm.FieldPhone),
			Position: rc.Field(amocrm.FieldPosition),
			Company:  amoCompanyName(ctx, client, rc, companies, log),
			Status:   model.ContactStatusActive,
			CRMData:  rc.Raw,
		}
		saved, err := s.store.UpsertContact(ctx, c)
		if err != nil {
			return nil, eris.Wrapf(err, "crm: upsert contact %s", c.CRMID)
		}
		out = append(out, *saved)
	}

	log.Info("crm: sync complete", zap.Int("contacts", len(out)))
	return out, nil
}

// amoCompanyName prefers the embedded company name, then a fetched one,
// then the COMPANY custom field. Fetch failures only cost the name.
func amoCompanyName(ctx context.Context, client amocrm.Client, rc *amocrm.Contact, cache map[int64]string, log *zap.Logger) string {
	ref, ok := rc.Company()
	if ok {
		if name := strings.TrimSpace(ref.Name); name != "" {
			return name
		}
		if ref.ID != 0 {
			name, seen := cache[ref.ID]
			if !seen {
				company, err := client.GetCompany(ctx, ref.ID)
				if err != nil {
					log.Warn("crm: company lookup failed",
						zap.Int64("company_id", ref.ID),
						zap.Int64("crm_contact_id", rc.ID),
						zap.Error(err),
					)
				} else {
					name = strings.TrimSpace(company.Name)
				}
				cache[ref.ID] = name
			}
			if name != "" {
				return name
			}
		}
	}
	return rc.Field(amocrm.FieldCompany)
}

func (s *Syncer) syncSalesforce(ctx context.Context, userID int64) ([]model.Contact, error) {
	if s.sf == nil {
		return nil, &model.ConfigurationError{Reason: "salesforce is not configured"}
	}
	remote, err := salesforce.ListContacts(ctx, s.sf, 0)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch salesforce contacts")
	}

	out := make([]model.Contact, 0, len(remote))
	for _, rc := range remote {
		raw, err := json.Marshal(rc)
		if err != nil {
			return nil, eris.Wrap(err, "crm: marshal salesforce contact")
		}
		c := &model.Contact{
			UserID:   userID,
			CRMID:    rc.ID,
			Name:     rc.Name(),
			Email:    rc.Email,
			Phone:    rc.Phone,
			Position: rc.Title,
			Company:  rc.CompanyName(),
			Status:   model.ContactStatusActive,
			CRMData:  raw,
		}
		saved, err := s.store.UpsertContact(ctx, c)
		if err != nil {
			return nil, eris.Wrapf(err, "crm: upsert contact %s", c.CRMID)
		}
		out = append(out, *saved)
	}

	zap.L().Info("crm: sync complete",
		zap.Int64("user_id", userID),
		zap.String("source", string(SourceSalesforce)),
		zap.Int("contacts", len(out)),
	)
	return out, nil
}
