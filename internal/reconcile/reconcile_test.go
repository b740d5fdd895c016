package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/resolve"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	duxmocks "github.com/sells-group/dux-ghl-sync/pkg/dux/mocks"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
	ghlmocks "github.com/sells-group/dux-ghl-sync/pkg/ghl/mocks"
)

type stubResolver struct {
	byERPID map[string][]ghl.Contact
	calls   []resolve.Criteria
}

func (s *stubResolver) Resolve(_ context.Context, c resolve.Criteria) []ghl.Contact {
	s.calls = append(s.calls, c)
	return s.byERPID[c.ERPID]
}

type recorder struct {
	entries []resilience.FailureEntry
}

func (r *recorder) RecordFailure(_ context.Context, e resilience.FailureEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

type notifier struct {
	phases []string
}

func (n *notifier) Notify(_ context.Context, phase string, _ error) {
	n.phases = append(n.phases, phase)
}

func invoiceFor(id, customer string) dux.Invoice {
	inv := sampleInvoice()
	inv.ID = dux.Text(id)
	inv.CustomerID = dux.Text(customer)
	return inv
}

var day = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func TestRun_UpdatesHeadMatch(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	crm := ghlmocks.NewMockClient(t)

	erp.On("ListBranches", mock.Anything).Return([]dux.Branch{{ID: "1", Name: "Casa Central"}}, nil)
	erp.On("ListInvoices", mock.Anything, dux.InvoiceFilter{From: day, To: day, BranchID: "1"}).
		Return([]dux.Invoice{invoiceFor("9001", "42"), invoiceFor("9002", "77")}, nil)

	res := &stubResolver{byERPID: map[string][]ghl.Contact{
		"42": {{ID: "c-newest"}, {ID: "c-older"}},
	}}
	crm.On("UpdateContact", mock.Anything, "c-newest", mock.MatchedBy(func(req ghl.UpdateContactRequest) bool {
		return fieldMap(req)[KeyBranchName] == "Casa Central" && fieldMap(req)[KeyInvoiceID] == "9001"
	})).Return(nil).Once()

	rep, err := New(erp, crm, res, Options{}, zap.NewNop()).Run(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, Report{Subunits: 1, Processed: 2, Matched: 1, Updated: 1}, rep)
	require.Len(t, res.calls, 2)
	assert.Equal(t, resolve.Criteria{ERPID: "42"}, res.calls[0], "resolve by erp id only")
}

func TestRun_ListBranchesFatal(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	erp.On("ListBranches", mock.Anything).Return(nil, &dux.APIError{Op: "list branches", StatusCode: 401})
	n := &notifier{}

	_, err := New(erp, ghlmocks.NewMockClient(t), &stubResolver{}, Options{}, zap.NewNop(), WithNotifier(n)).
		Run(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reconcile: list branches")
	assert.Equal(t, []string{"branches"}, n.phases)
}

func TestRun_BranchFailureContinues(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	crm := ghlmocks.NewMockClient(t)

	erp.On("ListBranches", mock.Anything).Return([]dux.Branch{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}}, nil)
	erp.On("ListInvoices", mock.Anything, mock.MatchedBy(func(f dux.InvoiceFilter) bool { return f.BranchID == "1" })).
		Return(nil, errors.New("dux: list invoices: timeout"))
	erp.On("ListInvoices", mock.Anything, mock.MatchedBy(func(f dux.InvoiceFilter) bool { return f.BranchID == "2" })).
		Return([]dux.Invoice{invoiceFor("9003", "42")}, nil)
	crm.On("UpdateContact", mock.Anything, "c-1", mock.Anything).Return(nil).Once()

	rec := &recorder{}
	res := &stubResolver{byERPID: map[string][]ghl.Contact{"42": {{ID: "c-1"}}}}

	var delays int
	e := New(erp, crm, res, Options{SubunitDelay: time.Hour}, zap.NewNop(), WithRecorder(rec), WithRunID("run-9"))
	e.sleep = func(context.Context, time.Duration) error { delays++; return nil }

	rep, err := e.Run(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, Report{Subunits: 2, SubunitFailures: 1, Processed: 1, Matched: 1, Updated: 1}, rep)
	assert.Equal(t, 1, delays, "delay between branches only")

	require.Len(t, rec.entries, 1)
	assert.Equal(t, resilience.PhaseInvoices, rec.entries[0].Phase)
	assert.Equal(t, "1", rec.entries[0].RecordKey)
	assert.Equal(t, "run-9", rec.entries[0].RunID)
}

func TestRun_UpdateFailureIsolated(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	crm := ghlmocks.NewMockClient(t)

	erp.On("ListBranches", mock.Anything).Return([]dux.Branch{{ID: "1", Name: "A"}}, nil)
	erp.On("ListInvoices", mock.Anything, mock.Anything).
		Return([]dux.Invoice{invoiceFor("1", "a"), invoiceFor("2", "b"), invoiceFor("3", "c")}, nil)
	crm.On("UpdateContact", mock.Anything, "ca", mock.Anything).Return(nil).Once()
	crm.On("UpdateContact", mock.Anything, "cb", mock.Anything).
		Return(&ghl.APIError{Op: "update contact", StatusCode: 503}).Once()
	crm.On("UpdateContact", mock.Anything, "cc", mock.Anything).Return(nil).Once()

	res := &stubResolver{byERPID: map[string][]ghl.Contact{
		"a": {{ID: "ca"}}, "b": {{ID: "cb"}}, "c": {{ID: "cc"}},
	}}
	rec := &recorder{}

	rep, err := New(erp, crm, res, Options{}, zap.NewNop(), WithRecorder(rec)).Run(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Processed)
	assert.Equal(t, 2, rep.Updated)
	assert.Equal(t, 1, rep.Failed)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "2", rec.entries[0].RecordKey)
	assert.Equal(t, resilience.ErrorTransient, rec.entries[0].ErrorType)
}

func TestRun_BadDateSkipsUpdate(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	crm := ghlmocks.NewMockClient(t)

	inv := invoiceFor("1", "a")
	inv.Date = "garbage"
	erp.On("ListBranches", mock.Anything).Return([]dux.Branch{{ID: "1"}}, nil)
	erp.On("ListInvoices", mock.Anything, mock.Anything).Return([]dux.Invoice{inv}, nil)

	res := &stubResolver{byERPID: map[string][]ghl.Contact{"a": {{ID: "ca"}}}}
	rep, err := New(erp, crm, res, Options{}, zap.NewNop()).Run(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	crm.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_NoBranches(t *testing.T) {
	erp := duxmocks.NewMockClient(t)
	erp.On("ListBranches", mock.Anything).Return([]dux.Branch{}, nil)

	rep, err := New(erp, ghlmocks.NewMockClient(t), &stubResolver{}, Options{}, zap.NewNop()).Run(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, Report{}, rep)
}

func TestReport_Counters(t *testing.T) {
	c := Report{Processed: 5, Matched: 3, Updated: 2, Failed: 1}.Counters()
	assert.Equal(t, 5, c.Total)
	assert.Equal(t, 2, c.Successful)
	assert.Equal(t, 1, c.Failed)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.ReconcileConfig{SubunitDelaySecs: 5, RentalMarker: "COMODATO"})
	assert.Equal(t, 5*time.Second, opts.SubunitDelay)
	assert.Equal(t, "COMODATO", opts.RentalMarker)
}
