package amocrm

import (
	"encoding/json"
	"strings"
)

// Contact is one amoCRM contact as returned by /api/v4/contacts.
type Contact struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	FirstName    string        `json:"first_name,omitempty"`
	LastName     string        `json:"last_name,omitempty"`
	CustomFields []CustomField `json:"custom_fields_values,omitempty"`
	Embedded     struct {
		Companies []CompanyRef `json:"companies,omitempty"`
	} `json:"_embedded"`

	// Raw is the contact object verbatim.
	Raw json.RawMessage `json:"-"`
}

// CustomField is one custom field value set on a contact.
type CustomField struct {
	FieldID   int64        `json:"field_id"`
	FieldName string       `json:"field_name"`
	FieldCode string       `json:"field_code,omitempty"`
	FieldType string       `json:"field_type"`
	Values    []FieldValue `json:"values"`
}

// FieldValue is one value of a custom field.
type FieldValue struct {
	Value    any    `json:"value"`
	EnumID   int64  `json:"enum_id,omitempty"`
	EnumCode string `json:"enum_code,omitempty"`
}

// CompanyRef is a company linked to a contact. Name is often empty.
type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Field kinds understood by Contact.Field.
const (
	FieldPhone    = "PHONE"
	FieldEmail    = "EMAIL"
	FieldPosition = "POSITION"
	FieldCompany  = "COMPANY"
)

// fieldAliases lists the field codes and display names that identify each
// kind. Accounts with custom layouts often only carry the Russian name.
var fieldAliases = map[string][]string{
	FieldPhone:    {"PHONE", "Телефон"},
	FieldEmail:    {"EMAIL", "Email"},
	FieldPosition: {"POSITION", "Должность"},
	FieldCompany:  {"COMPANY", "Компания"},
}

// Field returns the first value of the first custom field matching kind by
// code or by a name containing one of its aliases.
func (c *Contact) Field(kind string) string {
	aliases, ok := fieldAliases[kind]
	if !ok {
		aliases = []string{kind}
	}
	for _, f := range c.CustomFields {
		for _, a := range aliases {
			if f.FieldCode == a || strings.Contains(f.FieldName, a) {
				return f.first()
			}
		}
	}
	return ""
}

func (f CustomField) first() string {
	if len(f.Values) == 0 || f.Values[0].Value == nil {
		return ""
	}
	switch v := f.Values[0].Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		b, _ := json.Marshal(v)
		return string(b)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Company returns the first linked company reference.
func (c *Contact) Company() (CompanyRef, bool) {
	if len(c.Embedded.Companies) == 0 {
		return CompanyRef{}, false
	}
	return c.Embedded.Companies[0], true
}

// DisplayName returns Name, or first and last name joined when Name is empty.
func (c *Contact) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ParseContact decodes a stored contact payload.
func ParseContact(raw json.RawMessage) (*Contact, error) {
	var c Contact
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Raw = raw
	return &c, nil
}
