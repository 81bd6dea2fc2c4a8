package amocrm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContact_Field(t *testing.T) {
	c := Contact{CustomFields: []CustomField{
		{FieldName: "Рабочий Email", Values: []FieldValue{{Value: " ivan@example.com "}}},
		{FieldCode: "COMPANY", Values: []FieldValue{{Value: "Ромашка"}}},
		{FieldName: "Телефон", Values: nil},
		{FieldName: "Сотрудников", FieldCode: "HEADCOUNT", Values: []FieldValue{{Value: float64(120)}}},
	}}

	assert.Equal(t, "ivan@example.com", c.Field(FieldEmail))
	assert.Equal(t, "Ромашка", c.Field(FieldCompany))
	assert.Empty(t, c.Field(FieldPhone))
	assert.Equal(t, "120", c.Field("HEADCOUNT"))
	assert.Empty(t, c.Field(FieldPosition))
}

func TestParseContact(t *testing.T) {
	raw := json.RawMessage(`{"id":7,"name":"Иван","_embedded":{"companies":[{"id":3,"name":"Ромашка"}]}}`)

	c, err := ParseContact(raw)
	require.NoError(t, err)

	ref, ok := c.Company()
	require.True(t, ok)
	assert.Equal(t, CompanyRef{ID: 3, Name: "Ромашка"}, ref)
	assert.Equal(t, raw, c.Raw)

	_, err = ParseContact(json.RawMessage(`[1]`))
	assert.Error(t, err)
}
