package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockService) GenerateRecommendations(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error) {
	args := m.Called(ctx, userID, contactID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recommendation), args.Error(1)
}

func (m *mockService) Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error) {
	args := m.Called(ctx, userID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

func (m *mockService) Contact(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockService) Contacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

func connect(t *testing.T, svc Service) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	srv := New(svc, 7, "test")

	t1, t2 := mcp.NewInMemoryTransports()
	_, err := srv.MCPServer.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text, res.IsError
}

func TestServer_ListTools(t *testing.T) {
	session := connect(t, new(mockService))

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_contacts", "get_contact", "collect_data", "generate_recommendations", "sync_contacts",
	}, names)
}

func TestServer_CollectData(t *testing.T) {
	svc := new(mockService)
	svc.On("CollectData", mock.Anything, int64(7), int64(10)).Return(&model.Contact{
		ID:            10,
		Name:          "Иван Петров",
		CollectedData: &model.CollectedData{Industry: "IT", SearchQueries: []model.QueryRecord{}},
	}, nil)
	session := connect(t, svc)

	text, isErr := call(t, session, "collect_data", map[string]any{"contact_id": 10})

	require.False(t, isErr, text)
	var got model.Contact
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "IT", got.CollectedData.Industry)
	svc.AssertExpectations(t)
}

func TestServer_CollectData_RunInProgress(t *testing.T) {
	svc := new(mockService)
	svc.On("CollectData", mock.Anything, int64(7), int64(10)).Return(nil, &model.RunInProgressError{ContactID: 10})
	session := connect(t, svc)

	text, isErr := call(t, session, "collect_data", map[string]any{"contact_id": 10})

	assert.True(t, isErr)
	assert.Contains(t, text, "already in progress")
}

func TestServer_InvalidContactID(t *testing.T) {
	svc := new(mockService)
	session := connect(t, svc)

	text, isErr := call(t, session, "get_contact", map[string]any{"contact_id": 0})
	assert.True(t, isErr)
	assert.Contains(t, text, "contact_id is required")

	// A missing argument fails schema validation or the handler check.
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "collect_data",
		Arguments: map[string]any{},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
	svc.AssertNotCalled(t, "Contact", mock.Anything, mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "CollectData", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_GenerateRecommendations(t *testing.T) {
	recs := []model.Recommendation{{Title: "BI", Description: "d", Rationale: "r", Benefits: "b"}}
	svc := new(mockService)
	svc.On("GenerateRecommendations", mock.Anything, int64(7), int64(10), "claude-sonnet-4-20250514").Return(recs, nil)
	session := connect(t, svc)

	text, isErr := call(t, session, "generate_recommendations", map[string]any{
		"contact_id": 10,
		"model":      "claude-sonnet-4-20250514",
	})

	require.False(t, isErr, text)
	var got recommendationsOutput
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, recs, got.Recommendations)
}

func TestServer_SyncAndList(t *testing.T) {
	contacts := []model.Contact{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	svc := new(mockService)
	svc.On("Sync", mock.Anything, int64(7), crm.SourceAmoCRM).Return(contacts, nil)
	svc.On("Contacts", mock.Anything, int64(7)).Return(contacts, nil)
	session := connect(t, svc)

	text, isErr := call(t, session, "sync_contacts", map[string]any{})
	require.False(t, isErr, text)
	var got contactsOutput
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, 2, got.Count)

	text, isErr = call(t, session, "list_contacts", map[string]any{})
	require.False(t, isErr, text)
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Len(t, got.Contacts, 2)

	text, isErr = call(t, session, "sync_contacts", map[string]any{"source": "bitrix"})
	assert.True(t, isErr)
	assert.Contains(t, text, "bitrix")
}
