package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dzhechko/B2BSalesAI/internal/crm"
	"github.com/dzhechko/B2BSalesAI/internal/model"
	"github.com/dzhechko/B2BSalesAI/internal/service"
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

func (m *mockService) Settings(ctx context.Context, userID int64) (*model.UserSettings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *mockService) SaveSettings(ctx context.Context, userID int64, in model.UserSettings) (*model.UserSettings, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserSettings), args.Error(1)
}

func (m *mockService) Keys(ctx context.Context, userID int64) (*service.KeyStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.KeyStatus), args.Error(1)
}

func (m *mockService) SaveKeys(ctx context.Context, userID int64, in model.Credentials) (*service.KeyStatus, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.KeyStatus), args.Error(1)
}
