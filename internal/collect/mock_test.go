package collect

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/refine"
)

// --- Store Mock ---

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

func (m *mockStore) SaveCollectedData(ctx context.Context, userID, contactID int64, data *model.CollectedData) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	c := *args.Get(0).(*model.Contact)
	c.CollectedData = data
	return &c, args.Error(1)
}

// --- Directory Mock ---

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) GetCompanyName(ctx context.Context, userID int64, contact *model.Contact) (string, error) {
	args := m.Called(ctx, userID, contact)
	return args.String(0), args.Error(1)
}

// --- Adapter Mock ---

type mockAdapter struct {
	mock.Mock
	service model.Service
}

func (m *mockAdapter) Service() model.Service { return m.service }

func (m *mockAdapter) Search(ctx context.Context, query, credential string) (*model.ProviderResult, error) {
	args := m.Called(ctx, query, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderResult), args.Error(1)
}

// --- Refiner Mock ---

type mockRefiner struct {
	mock.Mock
}

func (m *mockRefiner) Company(ctx context.Context, apiKey, companyName string, evidence []string) (*refine.CompanyFacts, error) {
	args := m.Called(ctx, apiKey, companyName, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refine.CompanyFacts), args.Error(1)
}

func (m *mockRefiner) Contact(ctx context.Context, apiKey, contactName, companyName string, evidence []string) (*refine.ContactFacts, error) {
	args := m.Called(ctx, apiKey, contactName, companyName, evidence)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*refine.ContactFacts), args.Error(1)
}
