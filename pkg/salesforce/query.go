package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is the subset of a Salesforce Account read for company lookups.
type Account struct {
	ID       string `json:"Id" salesforce:"Id"`
	Name     string `json:"Name" salesforce:"Name"`
	Website  string `json:"Website" salesforce:"Website"`
	Industry string `json:"Industry" salesforce:"Industry"`
}

// Contact represents a Salesforce Contact record with its Account name.
type Contact struct {
	ID        string `json:"Id" salesforce:"Id"`
	FirstName string `json:"FirstName" salesforce:"FirstName"`
	LastName  string `json:"LastName" salesforce:"LastName"`
	Email     string `json:"Email" salesforce:"Email"`
	Phone     string `json:"Phone" salesforce:"Phone"`
	Title     string `json:"Title" salesforce:"Title"`
	AccountID string `json:"AccountId" salesforce:"AccountId"`
	Account   *struct {
		Name string `json:"Name"`
	} `json:"Account,omitempty"`
}

// Name joins first and last name.
func (c Contact) Name() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CompanyName returns the related Account name if the query selected it.
func (c Contact) CompanyName() string {
	if c.Account != nil {
		return c.Account.Name
	}
	return ""
}

var accountFields = []string{"Id", "Name", "Website", "Industry"}

var contactFields = []string{
	"Id", "FirstName", "LastName", "Email", "Phone", "Title", "AccountId", "Account.Name",
}

// FindAccountByID queries Salesforce for an Account by its ID.
// Returns nil if no account is found.
func FindAccountByID(ctx context.Context, c Client, id string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Id = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(id),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrapf(err, "sf: find account by id %s", id)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// ListContacts returns up to limit Contacts, most recently modified first.
func ListContacts(ctx context.Context, c Client, limit int) ([]Contact, error) {
	if limit <= 0 {
		limit = 2000
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Contact ORDER BY LastModifiedDate DESC LIMIT %d",
		strings.Join(contactFields, ", "),
		limit,
	)

	var contacts []Contact
	if err := c.Query(ctx, soql, &contacts); err != nil {
		return nil, eris.Wrap(err, "sf: list contacts")
	}
	return contacts, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
