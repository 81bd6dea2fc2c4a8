package collect

import (
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/refine"
)

// merger applies field-level precedence to a CollectedData. A source may set
// a field only with a non-empty value and only when its rank is at least the
// rank of the source that set the field before.
type merger struct {
	data *model.CollectedData
}

func newMerger(data *model.CollectedData) *merger {
	if data.FieldSources == nil {
		data.FieldSources = make(map[string]model.Source)
	}
	return &merger{data: data}
}

func (m *merger) claim(field string, src model.Source) bool {
	if cur, ok := m.data.FieldSources[field]; ok && src.Rank() < cur.Rank() {
		return false
	}
	m.data.FieldSources[field] = src
	return true
}

func (m *merger) str(field string, dst *string, v string, src model.Source) {
	if v == "" || !m.claim(field, src) {
		return
	}
	*dst = v
}

func (m *merger) products(v []string, src model.Source) {
	if len(v) == 0 || !m.claim(model.FieldProducts, src) {
		return
	}
	m.data.Products = append([]string(nil), v...)
}

func (m *merger) posts(v []model.SocialPost, src model.Source) {
	if len(v) == 0 || !m.claim(model.FieldSocialPosts, src) {
		return
	}
	m.data.SocialPosts = append([]model.SocialPost(nil), v...)
}

// companyResult merges the company-phase fields of a provider result.
func (m *merger) companyResult(src model.Source, r *model.ProviderResult) {
	m.str(model.FieldIndustry, &m.data.Industry, r.Industry, src)
	m.str(model.FieldRevenue, &m.data.Revenue, r.Revenue, src)
	m.str(model.FieldEmployees, &m.data.Employees, r.Employees, src)
	m.products(r.Products, src)
	m.str(model.FieldCompanySummary, &m.data.CompanySummary, r.CompanySummary, src)
}

// contactResult merges the contact-phase fields of a provider result.
func (m *merger) contactResult(src model.Source, r *model.ProviderResult) {
	m.str(model.FieldJobTitle, &m.data.JobTitle, r.JobTitle, src)
	m.posts(r.SocialPosts, src)
	m.str(model.FieldContactSummary, &m.data.ContactSummary, r.ContactSummary, src)
}

func (m *merger) companyFacts(f *refine.CompanyFacts) {
	m.str(model.FieldIndustry, &m.data.Industry, f.Industry, model.SourceRefiner)
	m.str(model.FieldRevenue, &m.data.Revenue, f.Revenue, model.SourceRefiner)
	m.str(model.FieldEmployees, &m.data.Employees, f.Employees, model.SourceRefiner)
	m.products(f.Products, model.SourceRefiner)
	m.str(model.FieldCompanySummary, &m.data.CompanySummary, f.Summary, model.SourceRefiner)
}

func (m *merger) contactFacts(f *refine.ContactFacts) {
	m.str(model.FieldJobTitle, &m.data.JobTitle, f.JobTitle, model.SourceRefiner)
	m.posts(f.SocialPosts, model.SourceRefiner)
	m.str(model.FieldContactSummary, &m.data.ContactSummary, f.Summary, model.SourceRefiner)
}
