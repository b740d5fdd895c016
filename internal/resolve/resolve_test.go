package resolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl/mocks"
)

func TestRequest_AllCriteria(t *testing.T) {
	r := New(new(mocks.MockClient), "loc-1", zap.NewNop())

	req, ok := r.Request(Criteria{ERPID: "42", Email: "a@b.co", Phone: "15-999"})
	require.True(t, ok)

	assert.Equal(t, "loc-1", req.LocationID)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 20, req.PageLimit)
	require.Len(t, req.Filters, 1)
	assert.Equal(t, ghl.GroupOR, req.Filters[0].Group)
	assert.Equal(t, []ghl.Filter{
		{Field: FieldERPID, Operator: "eq", Value: "42"},
		{Field: FieldEmail, Operator: "eq", Value: "a@b.co"},
		{Field: FieldPhone, Operator: "eq", Value: "15-999"},
	}, req.Filters[0].Filters)
	assert.Equal(t, []ghl.Sort{{Field: "dateAdded", Direction: "desc"}}, req.Sort)
}

func TestRequest_InvalidEmailDropped(t *testing.T) {
	r := New(new(mocks.MockClient), "loc-1", zap.NewNop())

	req, ok := r.Request(Criteria{ERPID: "42", Email: "not-an-email"})
	require.True(t, ok)
	require.Len(t, req.Filters[0].Filters, 1)
	assert.Equal(t, FieldERPID, req.Filters[0].Filters[0].Field)
}

func TestResolve_EmptyCriteriaSkipsCRM(t *testing.T) {
	m := mocks.NewMockClient(t)
	r := New(m, "loc-1", zap.NewNop())

	got := r.Resolve(context.Background(), Criteria{Email: "bogus"})
	assert.Empty(t, got)
	m.AssertNotCalled(t, "SearchContacts", mock.Anything, mock.Anything)
}

func TestResolve_OrdersByRecency(t *testing.T) {
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	mid := old.AddDate(0, 6, 0)
	recent := old.AddDate(1, 0, 0)

	var sent ghl.SearchRequest
	m := mocks.NewMockClient(t)
	m.On("SearchContacts", mock.Anything, mock.MatchedBy(func(req ghl.SearchRequest) bool {
		sent = req
		return true
	})).Return(&ghl.SearchResponse{
		Contacts: []ghl.Contact{
			{ID: "by-phone", Phone: "15-999", DateAdded: mid},
			{ID: "by-erp", CustomFields: []ghl.ContactCustomField{{ID: "id_cliente_dux", Value: "42"}}, DateAdded: old},
			{ID: "by-email", Email: "a@b.co", DateAdded: recent},
		},
		Total: 3,
	}, nil)

	r := New(m, "loc-1", zap.NewNop())
	got := r.Resolve(context.Background(), Criteria{ERPID: "42", Email: "a@b.co", Phone: "15-999"})

	require.Len(t, sent.Filters, 1)
	assert.Equal(t, ghl.GroupOR, sent.Filters[0].Group)
	assert.Len(t, sent.Filters[0].Filters, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "by-email", got[0].ID)
	assert.Equal(t, "by-phone", got[1].ID)
	assert.Equal(t, "by-erp", got[2].ID)
}

func TestResolve_ErrorYieldsEmpty(t *testing.T) {
	m := mocks.NewMockClient(t)
	m.On("SearchContacts", mock.Anything, mock.Anything).
		Return(nil, &ghl.APIError{Op: "search contacts", StatusCode: 500, Body: "boom"})

	r := New(m, "loc-1", zap.NewNop())
	assert.Empty(t, r.Resolve(context.Background(), Criteria{ERPID: "42"}))
}

func TestResolve_TransportErrorYieldsEmpty(t *testing.T) {
	m := mocks.NewMockClient(t)
	m.On("SearchContacts", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: refused"))

	r := New(m, "loc-1", zap.NewNop())
	assert.Empty(t, r.Resolve(context.Background(), Criteria{Phone: "011-555"}))
}

func TestResolve_NoMatches(t *testing.T) {
	m := mocks.NewMockClient(t)
	m.On("SearchContacts", mock.Anything, mock.MatchedBy(func(req ghl.SearchRequest) bool {
		return len(req.Filters[0].Filters) == 1 && req.Filters[0].Filters[0].Value == "99"
	})).Return(&ghl.SearchResponse{}, nil)

	r := New(m, "loc-1", zap.NewNop())
	assert.Empty(t, r.Resolve(context.Background(), Criteria{ERPID: "99"}))
}
