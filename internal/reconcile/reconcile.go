// Package reconcile copies the previous day's invoices onto the matching CRM
// contacts.
package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/monitoring"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/resolve"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// Resolver finds CRM contacts for an ERP customer.
type Resolver interface {
	Resolve(ctx context.Context, c resolve.Criteria) []ghl.Contact
}

// Report summarizes one reconciliation pass.
type Report struct {
	Subunits        int `json:"subunits"`
	SubunitFailures int `json:"subunit_failures"`
	Processed       int `json:"processed"`
	Matched         int `json:"matched"`
	Updated         int `json:"updated"`
	Failed          int `json:"failed"`
}

// Counters converts the report for the run ledger. Unmatched invoices are
// neither successes nor failures.
func (r Report) Counters() model.Counters {
	return model.Counters{Total: r.Processed, Successful: r.Updated, Failed: r.Failed}
}

// Options configures an Engine.
type Options struct {
	SubunitDelay time.Duration
	RentalMarker string
}

// OptionsFromConfig maps reconcile settings onto Options.
func OptionsFromConfig(cfg config.ReconcileConfig) Options {
	return Options{
		SubunitDelay: time.Duration(cfg.SubunitDelaySecs) * time.Second,
		RentalMarker: cfg.RentalMarker,
	}
}

// Engine walks every branch's invoices for a day and updates matched contacts.
type Engine struct {
	erp      dux.Client
	crm      ghl.Client
	resolver Resolver
	opts     Options
	recorder resilience.Recorder
	notifier monitoring.Notifier
	runID    string
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithRecorder persists per-invoice failures.
func WithRecorder(r resilience.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithNotifier raises alerts for batch-fatal errors.
func WithNotifier(n monitoring.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRunID tags recorded failures with the owning run.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// New creates an Engine.
func New(erp dux.Client, crm ghl.Client, resolver Resolver, opts Options, log *zap.Logger, extra ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RentalMarker == "" {
		opts.RentalMarker = DefaultRentalMarker
	}
	e := &Engine{
		erp:      erp,
		crm:      crm,
		resolver: resolver,
		opts:     opts,
		recorder: resilience.NopRecorder{},
		notifier: monitoring.NopNotifier{},
		log:      log.Named("reconcile"),
		sleep:    sleep,
	}
	for _, o := range extra {
		o(e)
	}
	return e
}

// Run reconciles the invoices dated day. Only a failure to list branches is
// fatal; branch and invoice failures are logged and skipped.
func (e *Engine) Run(ctx context.Context, day time.Time) (Report, error) {
	var rep Report

	branches, err := e.erp.ListBranches(ctx)
	if err != nil {
		e.notifier.Notify(ctx, string(resilience.PhaseBranches), err)
		return rep, eris.Wrap(err, "reconcile: list branches")
	}
	e.log.Info("branches found", zap.Int("count", len(branches)))

	for i, b := range branches {
		if i > 0 {
			if err := e.sleep(ctx, e.opts.SubunitDelay); err != nil {
				return rep, eris.Wrap(err, "reconcile: settle delay")
			}
		}
		rep.Subunits++

		invoices, err := e.erp.ListInvoices(ctx, dux.InvoiceFilter{From: day, To: day, BranchID: b.ID.String()})
		if err != nil {
			rep.SubunitFailures++
			e.log.Error("failed to list invoices",
				zap.String("branch_id", b.ID.String()),
				zap.String("branch", b.Name),
				zap.Error(err),
			)
			e.record(ctx, resilience.PhaseInvoices, b.ID.String(), err)
			continue
		}
		e.log.Debug("invoices found",
			zap.String("branch", b.Name),
			zap.Int("count", len(invoices)),
		)

		for _, inv := range invoices {
			if err := ctx.Err(); err != nil {
				return rep, eris.Wrap(err, "reconcile: cancelled")
			}
			rep.Processed++
			e.reconcile(ctx, &rep, b, inv)
		}
	}

	e.log.Info("reconciliation complete",
		zap.String("day", day.Format("2006-01-02")),
		zap.Int("processed", rep.Processed),
		zap.Int("matched", rep.Matched),
		zap.Int("updated", rep.Updated),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (e *Engine) reconcile(ctx context.Context, rep *Report, b dux.Branch, inv dux.Invoice) {
	contacts := e.resolver.Resolve(ctx, resolve.Criteria{ERPID: inv.CustomerID.String()})
	if len(contacts) == 0 {
		return
	}
	rep.Matched++

	req, err := BuildUpdate(inv, b.Name, e.opts.RentalMarker)
	if err != nil {
		rep.Failed++
		e.log.Error("invoice failed", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		e.record(ctx, resilience.PhaseReconcile, inv.ID.String(), err)
		return
	}

	head := contacts[0]
	if err := e.crm.UpdateContact(ctx, head.ID, req); err != nil {
		rep.Failed++
		e.log.Error("contact update failed",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("contact_id", head.ID),
			zap.Error(err),
		)
		e.record(ctx, resilience.PhaseReconcile, inv.ID.String(), err)
		return
	}

	rep.Updated++
	e.log.Debug("contact updated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("contact_id", head.ID),
		zap.String("branch", b.Name),
	)
}

func (e *Engine) record(ctx context.Context, phase resilience.Phase, key string, err error) {
	entry := resilience.NewFailure(e.runID, phase, key, err)
	if rerr := e.recorder.RecordFailure(ctx, entry); rerr != nil {
		e.log.Warn("failed to record failure", zap.String("key", key), zap.Error(rerr))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
