// Package mocks provides test doubles for the sevdesk client.
package mocks

import (
	"context"

	sevdesk "github.com/sells-group/contact-sync/pkg/sevdesk"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

func (_m *MockClient) records(method string, args ...any) ([]sevdesk.Record, error) {
	ret := _m.MethodCalled(method, args...)

	if len(ret) == 0 {
		panic("no return value specified for " + method)
	}

	var r0 []sevdesk.Record
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]sevdesk.Record)
	}
	return r0, ret.Error(1)
}

// ListContacts provides a mock function with given fields: ctx, limit, offset
func (_m *MockClient) ListContacts(ctx context.Context, limit int, offset int) ([]sevdesk.Record, error) {
	return _m.records("ListContacts", ctx, limit, offset)
}

// ListContactAddresses provides a mock function with given fields: ctx, limit, offset
func (_m *MockClient) ListContactAddresses(ctx context.Context, limit int, offset int) ([]sevdesk.Record, error) {
	return _m.records("ListContactAddresses", ctx, limit, offset)
}

// ListCommunicationWays provides a mock function with given fields: ctx, limit, offset
func (_m *MockClient) ListCommunicationWays(ctx context.Context, limit int, offset int) ([]sevdesk.Record, error) {
	return _m.records("ListCommunicationWays", ctx, limit, offset)
}

// GetContactByID provides a mock function with given fields: ctx, id
func (_m *MockClient) GetContactByID(ctx context.Context, id string) (sevdesk.Record, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetContactByID")
	}

	var r0 sevdesk.Record
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(sevdesk.Record)
	}
	return r0, ret.Error(1)
}

// CreateContactPerson provides a mock function with given fields: ctx, firstName, lastName
func (_m *MockClient) CreateContactPerson(ctx context.Context, firstName string, lastName string) (string, error) {
	ret := _m.Called(ctx, firstName, lastName)

	if len(ret) == 0 {
		panic("no return value specified for CreateContactPerson")
	}

	return ret.String(0), ret.Error(1)
}

// CreateCommunicationEmail provides a mock function with given fields: ctx, contactID, email, main
func (_m *MockClient) CreateCommunicationEmail(ctx context.Context, contactID string, email string, main bool) error {
	ret := _m.Called(ctx, contactID, email, main)

	if len(ret) == 0 {
		panic("no return value specified for CreateCommunicationEmail")
	}

	return ret.Error(0)
}

// Ping provides a mock function with given fields: ctx
func (_m *MockClient) Ping(ctx context.Context) (int, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Ping")
	}

	return ret.Int(0), ret.Error(1)
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

var _ sevdesk.Client = (*MockClient)(nil)
