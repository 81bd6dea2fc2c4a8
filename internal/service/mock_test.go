package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
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

func (m *mockStore) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}

func (m *mockStore) GetSettings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *mockStore) SaveSettings(ctx context.Context, s *model.UserSettings) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStore) GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credentials), args.Error(1)
}

func (m *mockStore) SaveCredentials(ctx context.Context, c *model.Credentials) error {
	return m.Called(ctx, c).Error(0)
}

type mockCollector struct {
	mock.Mock
}

func (m *mockCollector) CollectData(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	args := m.Called(ctx, userID, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, userID, contactID int64, modelID string) ([]model.Recommendation, error) {
	args := m.Called(ctx, userID, contactID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Recommendation), args.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(ctx context.Context, userID int64, source crm.Source) ([]model.Contact, error) {
	args := m.Called(ctx, userID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contact), args.Error(1)
}
