// Package mocks provides test doubles for the amocrm client.
package mocks

import (
	"context"

	amocrm "github.com/dzhechko/B2BSalesAI/pkg/amocrm"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetCompany provides a mock function with given fields: ctx, id
func (_m *MockClient) GetCompany(ctx context.Context, id int64) (*amocrm.Company, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetCompany")
	}

	var r0 *amocrm.Company
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int64) (*amocrm.Company, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int64) *amocrm.Company); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*amocrm.Company)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, int64) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListContacts provides a mock function with given fields: ctx
func (_m *MockClient) ListContacts(ctx context.Context) ([]amocrm.Contact, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ListContacts")
	}

	var r0 []amocrm.Contact
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) ([]amocrm.Contact, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) []amocrm.Contact); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]amocrm.Contact)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
