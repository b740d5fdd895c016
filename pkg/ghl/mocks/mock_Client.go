// Package mocks provides test doubles for the ghl client.
package mocks

import (
	"context"

	ghl "github.com/sells-group/dux-ghl-sync/pkg/ghl"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// UpsertContact provides a mock function with given fields: ctx, req
func (_m *MockClient) UpsertContact(ctx context.Context, req ghl.UpsertContactRequest) (*ghl.UpsertContactResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for UpsertContact")
	}

	var r0 *ghl.UpsertContactResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ghl.UpsertContactRequest) (*ghl.UpsertContactResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ghl.UpsertContactResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// SearchContacts provides a mock function with given fields: ctx, req
func (_m *MockClient) SearchContacts(ctx context.Context, req ghl.SearchRequest) (*ghl.SearchResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for SearchContacts")
	}

	var r0 *ghl.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, ghl.SearchRequest) (*ghl.SearchResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*ghl.SearchResponse)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// UpdateContact provides a mock function with given fields: ctx, contactID, req
func (_m *MockClient) UpdateContact(ctx context.Context, contactID string, req ghl.UpdateContactRequest) error {
	ret := _m.Called(ctx, contactID, req)

	if len(ret) == 0 {
		panic("no return value specified for UpdateContact")
	}

	if rf, ok := ret.Get(0).(func(context.Context, string, ghl.UpdateContactRequest) error); ok {
		return rf(ctx, contactID, req)
	}
	return ret.Error(0)
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
