package crm

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dzhechko/B2BSalesAI/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetCredentials(ctx context.Context, userID int64) (*model.Credentials, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credentials), args.Error(1)
}

func (m *mockStore) UpsertContact(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	args := m.Called(ctx, c)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	out := *c
	out.ID = args.Get(0).(int64)
	return &out, nil
}

// fakeSalesforce answers SOQL queries from fixed fixtures.
type fakeSalesforce struct {
	queryFn func(ctx context.Context, soql string, out any) error
}

func (f *fakeSalesforce) Query(ctx context.Context, soql string, out any) error {
	return f.queryFn(ctx, soql, out)
}
