package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedContact(t *testing.T, st Store, userID int64, crmID string) *model.Contact {
	t.Helper()
	c, err := st.UpsertContact(context.Background(), &model.Contact{
		UserID:   userID,
		CRMID:    crmID,
		Name:     "Иван Иванов",
		Email:    "ivan@example.com",
		Position: "CFO",
		Company:  "Ромашка",
		CRMData:  json.RawMessage(`{"id":` + crmID + `}`),
	})
	require.NoError(t, err)
	return c
}

// --- Contacts ---

func TestSQLite_UpsertContact_InsertAndRefresh(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c := seedContact(t, st, 1, "101")
	assert.NotZero(t, c.ID)
	assert.Equal(t, model.ContactStatusActive, c.Status)
	assert.JSONEq(t, `{"id":101}`, string(c.CRMData))
	assert.WithinDuration(t, time.Now(), c.LastUpdated, time.Minute)

	_, err := st.SaveRecommendations(ctx, 1, c.ID, []model.Recommendation{{Title: "a", Description: "b", Rationale: "c", Benefits: "d"}})
	require.NoError(t, err)

	refreshed, err := st.UpsertContact(ctx, &model.Contact{UserID: 1, CRMID: "101", Name: "Иван Петров", Status: model.ContactStatusInactive})
	require.NoError(t, err)

	assert.Equal(t, c.ID, refreshed.ID)
	assert.Equal(t, "Иван Петров", refreshed.Name)
	assert.Equal(t, model.ContactStatusInactive, refreshed.Status)
	assert.Len(t, refreshed.Recommendations, 1, "sync keeps generated recommendations")
}

func TestSQLite_UpsertContact_EmptyCRMID(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.UpsertContact(context.Background(), &model.Contact{UserID: 1, Name: "x"})
	require.Error(t, err)
}

func TestSQLite_GetContact_ScopedToUser(t *testing.T) {
	st := newTestSQLiteStore(t)
	c := seedContact(t, st, 1, "101")

	got, err := st.GetContact(context.Background(), 1, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ромашка", got.Company)
	assert.Nil(t, got.CollectedData)

	_, err = st.GetContact(context.Background(), 2, c.ID)
	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "contact", nf.Entity)
}

func TestSQLite_ListContacts(t *testing.T) {
	st := newTestSQLiteStore(t)
	seedContact(t, st, 1, "101")
	seedContact(t, st, 1, "102")
	seedContact(t, st, 2, "201")

	list, err := st.ListContacts(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "102", list[0].CRMID)

	empty, err := st.ListContacts(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLite_SaveCollectedData_FullReplace(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	c := seedContact(t, st, 1, "101")

	first := model.NewCollectedData()
	first.Industry = "IT"
	first.Revenue = "500 млрд руб"
	first.FieldSources[model.FieldIndustry] = model.SourceAISearch
	first.AppendQuery(model.QueryRecord{
		Service:     model.ServiceBrave,
		Phase:       model.PhaseCompany,
		Query:       "q",
		Status:      model.QueryStatusOK,
		RawResponse: &model.RawPayload{Encoding: "application/json", Body: "{}"},
		Timestamp:   time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
	})
	saved, err := st.SaveCollectedData(ctx, 1, c.ID, first)
	require.NoError(t, err)
	require.NotNil(t, saved.CollectedData)
	assert.Equal(t, "IT", saved.CollectedData.Industry)
	require.Len(t, saved.CollectedData.SearchQueries, 1)
	assert.Equal(t, "application/json", saved.CollectedData.SearchQueries[0].RawResponse.Encoding)

	second := model.NewCollectedData()
	second.Industry = "Банки"
	saved, err = st.SaveCollectedData(ctx, 1, c.ID, second)
	require.NoError(t, err)
	assert.Equal(t, "Банки", saved.CollectedData.Industry)
	assert.Empty(t, saved.CollectedData.Revenue)
	assert.Empty(t, saved.CollectedData.SearchQueries)
}

func TestSQLite_SaveUnknownContact(t *testing.T) {
	st := newTestSQLiteStore(t)
	var nf *model.NotFoundError

	_, err := st.SaveCollectedData(context.Background(), 1, 999, model.NewCollectedData())
	require.ErrorAs(t, err, &nf)

	_, err = st.SaveRecommendations(context.Background(), 1, 999, nil)
	require.ErrorAs(t, err, &nf)
}

// --- Settings & credentials ---

func TestSQLite_Settings_DefaultsAndSave(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	s, err := st.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(1), s)

	require.NoError(t, st.SaveSettings(ctx, &model.UserSettings{
		UserID:        1,
		SearchSystems: []model.Service{model.ServicePerplexity},
		Playbook:      "my playbook",
		Theme:         "dark",
	}))

	s, err = st.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Service{model.ServicePerplexity}, s.SearchSystems)
	assert.Equal(t, "my playbook", s.EffectivePlaybook())
	assert.Equal(t, "dark", s.Theme)

	require.NoError(t, st.SaveSettings(ctx, &model.UserSettings{UserID: 1}))
	s, err = st.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, s.SearchSystems)
}

func TestSQLite_Credentials(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c, err := st.GetCredentials(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &model.Credentials{UserID: 1}, c)

	want := &model.Credentials{UserID: 1, BraveKey: "b", PerplexityKey: "p", AnthropicKey: "a", GeminiKey: "g", AmoCRMKey: "t", AmoCRMSubdomain: "acme"}
	require.NoError(t, st.SaveCredentials(ctx, want))

	got, err := st.GetCredentials(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
