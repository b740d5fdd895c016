// Package mocks provides test doubles for the dux client.
package mocks

import (
	"context"

	dux "github.com/sells-group/dux-ghl-sync/pkg/dux"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ListBranches provides a mock function with given fields: ctx
func (_m *MockClient) ListBranches(ctx context.Context) ([]dux.Branch, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for ListBranches")
	}

	var r0 []dux.Branch
	if rf, ok := ret.Get(0).(func(context.Context) ([]dux.Branch, error)); ok {
		return rf(ctx)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]dux.Branch)
	}

	return r0, ret.Error(1)
}

// ListInvoices provides a mock function with given fields: ctx, filter
func (_m *MockClient) ListInvoices(ctx context.Context, filter dux.InvoiceFilter) ([]dux.Invoice, error) {
	ret := _m.Called(ctx, filter)

	if len(ret) == 0 {
		panic("no return value specified for ListInvoices")
	}

	var r0 []dux.Invoice
	if rf, ok := ret.Get(0).(func(context.Context, dux.InvoiceFilter) ([]dux.Invoice, error)); ok {
		return rf(ctx, filter)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]dux.Invoice)
	}

	return r0, ret.Error(1)
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
