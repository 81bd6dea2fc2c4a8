package model

import (
	"encoding/json"
	"time"
)

// ContactStatus is the CRM-side lifecycle label of a contact.
type ContactStatus string

const (
	ContactStatusActive   ContactStatus = "Активный"
	ContactStatusInactive ContactStatus = "Неактивный"
)

// Contact is a person in a user's CRM with the enrichment state attached to it.
// Contacts are created and refreshed by CRM sync, updated in place by
// collection and recommendation runs, and never deleted by the core.
type Contact struct {
	ID              int64            `json:"id"`
	UserID          int64            `json:"user_id"`
	CRMID           string           `json:"crm_id"`
	Name            string           `json:"name"`
	Email           string           `json:"email,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Position        string           `json:"position,omitempty"`
	Company         string           `json:"company,omitempty"`
	Status          ContactStatus    `json:"status"`
	CRMData         json.RawMessage  `json:"crm_data,omitempty"` // opaque, as received from the CRM
	CollectedData   *CollectedData   `json:"collected_data,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	LastUpdated     time.Time        `json:"last_updated"`
}

// Recommendation is one tailored sales suggestion for a contact.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
	Benefits    string `json:"benefits"`
}

// RecommendationBatchSize is the number of recommendations produced per run.
const RecommendationBatchSize = 3

// Complete reports whether every field of the recommendation is non-empty.
func (r Recommendation) Complete() bool {
	return r.Title != "" && r.Description != "" && r.Rationale != "" && r.Benefits != ""
}
