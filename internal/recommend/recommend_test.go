package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/pkg/anthropic"
	anthropicmocks "github.com/dzhechko/B2BSalesAI/pkg/anthropic/mocks"
	"github.com/dzhechko/B2BSalesAI/pkg/gemini"
	geminimocks "github.com/dzhechko/B2BSalesAI/pkg/gemini/mocks"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetContact(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

func (m *mockStore) GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *mockStore) GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credentials), args.Error(1)
}

func (m *mockStore) SaveRecommendations(ctx context.Context, userID, contactID int64, recs []model.Recommendation) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID, recs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

const validAnswer = `{
  "recommendations": [
    {"title": "Система управления закупками", "description": "Автоматизирует закупки.", "rationale": "Контакт руководит закупками.", "benefits": "Экономия 15-20%"},
    {"title": "BI-платформа", "description": "Аналитика и отчетность.", "rationale": "Крупная IT-компания.", "benefits": "Быстрые решения"},
    {"title": "Электронный документооборот", "description": "ЭДО и подписи.", "rationale": "Много договоров.", "benefits": "Окупаемость 6 месяцев"}
  ]
}`

func testContact() *model.Contact {
	return &model.Contact{
		ID:      10,
		UserID:  1,
		Name:    "Иван Иванов",
		Company: "Ромашка",
		CollectedData: &model.CollectedData{
			Industry:    "IT",
			Revenue:     "500 млрд руб",
			Products:    []string{"CRM", "BI"},
			JobTitle:    "Директор по закупкам",
			SocialPosts: []model.SocialPost{{Content: "Ищем поставщиков"}, {Content: "Итоги года"}},
		},
	}
}

func newStore(t *testing.T, creds *model.Credentials) *mockStore {
	t.Helper()
	st := &mockStore{}
	st.On("GetContact", mock.Anything, int64(1), int64(10)).Return(testContact(), nil)
	st.On("GetCredentials", mock.Anything, int64(1)).Return(creds, nil)
	st.On("GetSettings", mock.Anything, int64(1)).Return(model.DefaultSettings(1), nil)
	t.Cleanup(func() { st.AssertExpectations(t) })
	return st
}

func anthropicText(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: text}}}
}

func TestGenerate_Anthropic(t *testing.T) {
	st := newStore(t, &model.Credentials{AnthropicKey: "sk"})
	client := anthropicmocks.NewMockClient(t)

	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		p := req.Messages[0].Content
		return req.Model == anthropic.DefaultModel &&
			*req.Temperature == temperature &&
			strings.Contains(p, "- Отрасль: IT") &&
			strings.Contains(p, "- Количество сотрудников: Не указано") &&
			strings.Contains(p, "- Основные продукты: CRM, BI") &&
			strings.Contains(p, "- Должность: Директор по закупкам") &&
			strings.Contains(p, "- Последние публикации: Ищем поставщиков; Итоги года") &&
			strings.Contains(p, "СПРАВОЧНИК ПРОДУКТОВ И УСЛУГ")
	})).Return(anthropicText("```json\n"+validAnswer+"\n```"), nil)

	st.On("SaveRecommendations", mock.Anything, int64(1), int64(10), mock.MatchedBy(func(recs []model.Recommendation) bool {
		return len(recs) == 3
	})).Return(testContact(), nil)

	var gotKey string
	g := New(st, func(apiKey string) anthropic.Client {
		gotKey = apiKey
		return client
	})

	recs, err := g.Generate(context.Background(), 1, 10, "")
	require.NoError(t, err)

	assert.Equal(t, "sk", gotKey)
	require.Len(t, recs, model.RecommendationBatchSize)
	for _, r := range recs {
		assert.True(t, r.Complete())
	}
	assert.Equal(t, "Система управления закупками", recs[0].Title)
}

func TestGenerate_RetailContactWithCRMPlaybook(t *testing.T) {
	const playbook = "1. CRM-система: управление продажами и клиентской базой"

	contact := &model.Contact{
		ID:      10,
		UserID:  1,
		Name:    "Анна Смирнова",
		Company: "Магнит",
		CollectedData: &model.CollectedData{
			Industry:  "retail",
			Employees: "1000",
		},
	}
	st := &mockStore{}
	st.On("GetContact", mock.Anything, int64(1), int64(10)).Return(contact, nil)
	st.On("GetCredentials", mock.Anything, int64(1)).Return(&model.Credentials{AnthropicKey: "sk"}, nil)
	st.On("GetSettings", mock.Anything, int64(1)).Return(&model.UserSettings{UserID: 1, Playbook: playbook}, nil)
	st.On("SaveRecommendations", mock.Anything, int64(1), int64(10), mock.Anything).Return(contact, nil)
	defer st.AssertExpectations(t)

	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		p := req.Messages[0].Content
		return strings.Contains(p, "- Отрасль: retail") &&
			strings.Contains(p, "- Количество сотрудников: 1000") &&
			strings.Contains(p, playbook)
	})).Return(anthropicText(validAnswer), nil)

	recs, err := New(st, func(string) anthropic.Client { return client }).Generate(context.Background(), 1, 10, "")
	require.NoError(t, err)

	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.True(t, r.Complete(), "incomplete recommendation %q", r.Title)
	}
}

func TestGenerate_GeminiSelectedByModelID(t *testing.T) {
	st := newStore(t, &model.Credentials{AnthropicKey: "sk", GeminiKey: "gk"})
	client := geminimocks.NewMockClient(t)

	client.On("Generate", mock.Anything, mock.MatchedBy(func(req gemini.GenerateRequest) bool {
		return req.Model == "gemini-2.5-pro" && req.JSON && *req.Temperature == float32(temperature)
	})).Return(&gemini.GenerateResponse{Text: validAnswer}, nil)
	client.On("Close").Return(nil)
	st.On("SaveRecommendations", mock.Anything, int64(1), int64(10), mock.Anything).Return(testContact(), nil)

	g := New(st,
		func(string) anthropic.Client { t.Fatal("anthropic must not be used"); return nil },
		WithGemini(func(_ context.Context, apiKey string) (gemini.Client, error) {
			assert.Equal(t, "gk", apiKey)
			return client, nil
		}),
	)

	recs, err := g.Generate(context.Background(), 1, 10, "gemini-2.5-pro")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestGenerate_MissingCredential(t *testing.T) {
	tests := []struct {
		name    string
		creds   *model.Credentials
		modelID string
	}{
		{name: "anthropic", creds: &model.Credentials{GeminiKey: "gk"}, modelID: ""},
		{name: "gemini", creds: &model.Credentials{AnthropicKey: "sk"}, modelID: "gemini-2.5-flash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStore(t, tt.creds)
			g := New(st,
				func(string) anthropic.Client { t.Fatal("no client expected"); return nil },
				WithGemini(func(context.Context, string) (gemini.Client, error) {
					t.Fatal("no client expected")
					return nil, nil
				}),
			)

			_, err := g.Generate(context.Background(), 1, 10, tt.modelID)

			var cfgErr *model.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			st.AssertNotCalled(t, "SaveRecommendations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGenerate_MalformedOutput(t *testing.T) {
	st := newStore(t, &model.Credentials{AnthropicKey: "sk"})
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(anthropicText(`{"recommendations": [{"title": "a", "description": "b", "rationale": "c", "benefits": "d"}]}`), nil)

	g := New(st, func(string) anthropic.Client { return client })
	_, err := g.Generate(context.Background(), 1, 10, "claude-haiku-4-5-20251001")

	var recErr *model.RecommendationError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, int64(10), recErr.ContactID)
	var parseErr *model.ExtractionParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, Stage, parseErr.Stage)
	st.AssertNotCalled(t, "SaveRecommendations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_TransportError(t *testing.T) {
	st := newStore(t, &model.Credentials{AnthropicKey: "sk"})
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("anthropic: overloaded"))

	g := New(st, func(string) anthropic.Client { return client })
	_, err := g.Generate(context.Background(), 1, 10, "")

	var recErr *model.RecommendationError
	require.ErrorAs(t, err, &recErr)
	var parseErr *model.ExtractionParseError
	assert.False(t, errors.As(err, &parseErr))
}

func TestGenerate_DefaultModel(t *testing.T) {
	st := newStore(t, &model.Credentials{AnthropicKey: "sk"})
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001"
	})).Return(anthropicText(validAnswer), nil)
	st.On("SaveRecommendations", mock.Anything, int64(1), int64(10), mock.Anything).Return(testContact(), nil)

	g := New(st, func(string) anthropic.Client { return client }, WithDefaultModel("claude-haiku-4-5-20251001"))
	_, err := g.Generate(context.Background(), 1, 10, "  ")
	require.NoError(t, err)
}

func TestGenerate_ContactNotFound(t *testing.T) {
	st := &mockStore{}
	st.On("GetContact", mock.Anything, int64(1), int64(99)).Return(nil, &model.NotFoundError{Entity: "contact", ID: "99"})

	g := New(st, func(string) anthropic.Client { return nil })
	_, err := g.Generate(context.Background(), 1, 99, "")

	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	st.AssertExpectations(t)
}

func TestParse(t *testing.T) {
	recs, err := Parse(validAnswer)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	bad := strings.Replace(validAnswer, `"title": "BI-платформа"`, `"title": "   "`, 1)
	_, err = Parse(bad)
	var parseErr *model.ExtractionParseError
	require.ErrorAs(t, err, &parseErr)

	_, err = Parse("Извините, не могу помочь")
	require.ErrorAs(t, err, &parseErr)
}

func TestIsGemini(t *testing.T) {
	assert.True(t, IsGemini("gemini-2.5-flash"))
	assert.True(t, IsGemini(" Gemini-pro"))
	assert.False(t, IsGemini("claude-sonnet-4-5-20250929"))
	assert.False(t, IsGemini(""))
}

func TestPrompt_Fallbacks(t *testing.T) {
	p := Prompt(&model.Contact{Name: "Анна", Position: "CTO"}, "PLAYBOOK")

	assert.Contains(t, p, "PLAYBOOK")
	assert.Contains(t, p, "- Название: Не указано")
	assert.Contains(t, p, "- Отрасль: Не указана")
	assert.Contains(t, p, "- Должность: CTO")
	assert.Contains(t, p, "- Последние публикации: Нет данных")
}
