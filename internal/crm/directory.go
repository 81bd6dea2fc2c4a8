package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/salesforce"
)

// Directory looks up a contact's company in the CRM it was synced from.
type Directory struct {
	creds  CredentialStore
	newAmo AmoFactory
	sf     salesforce.Client
}

// NewDirectory creates a Directory. sf may be nil when Salesforce is not
// connected.
func NewDirectory(creds CredentialStore, newAmo AmoFactory, sf salesforce.Client) *Directory {
	if newAmo == nil {
		newAmo = DefaultAmoFactory
	}
	return &Directory{creds: creds, newAmo: newAmo, sf: sf}
}

// GetCompanyName returns the name of the company referenced by the contact's
// stored CRM payload. It returns "" without error when the payload carries
// no reference or the owning CRM is not configured.
func (d *Directory) GetCompanyName(ctx context.Context, userID int64, contact *model.Contact) (string, error) {
	ref, ok := parsePayload(contact.CRMData)
	if !ok {
		return "", nil
	}

	if ref.AccountID != "" {
		if d.sf == nil {
			return "", nil
		}
		acct, err := salesforce.FindAccountByID(ctx, d.sf, ref.AccountID)
		if err != nil {
			return "", eris.Wrapf(err, "crm: account for contact %d", contact.ID)
		}
		if acct == nil {
			return "", nil
		}
		return strings.TrimSpace(acct.Name), nil
	}

	if len(ref.Embedded.Companies) == 0 {
		return "", nil
	}
	company := ref.Embedded.Companies[0]
	if name := strings.TrimSpace(company.Name); name != "" {
		return name, nil
	}
	if company.ID == 0 {
		return "", nil
	}

	creds, err := d.creds.GetCredentials(ctx, userID)
	if err != nil {
		return "", eris.Wrap(err, "crm: load credentials")
	}
	if !amoConfigured(creds) {
		zap.L().Debug("crm: amoCRM not configured, skipping company lookup",
			zap.Int64("user_id", userID),
			zap.Int64("contact_id", contact.ID),
		)
		return "", nil
	}

	c, err := d.newAmo(creds.AmoCRMSubdomain, creds.AmoCRMKey).GetCompany(ctx, company.ID)
	if err != nil {
		return "", eris.Wrapf(err, "crm: company %d for contact %d", company.ID, contact.ID)
	}
	return strings.TrimSpace(c.Name), nil
}
