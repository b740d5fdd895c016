// Package upsert drains a staging artifact into the CRM as contacts.
package upsert

import (
	"context"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/monitoring"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/staging"
	"github.com/sells-group/dux-ghl-sync/internal/validate"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// Custom field keys written on every contact.
const (
	KeyERPID          = "id_cliente_dux"
	KeyTaxCategory    = "categoria_fiscal_dux"
	KeyDocumentType   = "tipo_documento_dux"
	KeyDocumentNumber = "numero_documento_dux"
	KeyFiscalID       = "cuit_cuil_dux"
	KeyCustomerType   = "tipo_cliente_dux"
	KeyProvince       = "provincia_dux"
	KeyNeighborhood   = "barrio_dux"
	KeyBillingAddress = "direccion_facturacion_dux"
	KeyPostalCode     = "codigo_postal_dux"
	KeyBillingEmail   = "email_facturacion_dux"
)

// Report summarizes one drain.
type Report struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Counters converts the report for the run ledger.
func (r Report) Counters() model.Counters {
	return model.Counters{Total: r.Total, Successful: r.Successful, Failed: r.Failed}
}

// Engine upserts staged client rows as CRM contacts.
type Engine struct {
	client     ghl.Client
	locationID string
	schema     model.Schema
	recorder   resilience.Recorder
	notifier   monitoring.Notifier
	runID      string
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder persists per-record failures.
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

// WithSchema overrides the default field positions.
func WithSchema(s model.Schema) Option {
	return func(e *Engine) { e.schema = s }
}

// New creates an Engine writing into locationID.
func New(client ghl.Client, locationID string, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		client:     client,
		locationID: locationID,
		schema:     model.DefaultSchema,
		recorder:   resilience.NopRecorder{},
		notifier:   monitoring.NopNotifier{},
		log:        log.Named("upsert"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Payload builds the upsert body for one client record.
func Payload(locationID string, rec model.ClientRecord) ghl.UpsertContactRequest {
	fields := []ghl.CustomField{
		{Key: KeyERPID, FieldValue: rec.ID},
		{Key: KeyTaxCategory, FieldValue: rec.TaxCategory},
		{Key: KeyDocumentType, FieldValue: rec.DocumentType},
		{Key: KeyDocumentNumber, FieldValue: rec.DocumentNumber},
		{Key: KeyFiscalID, FieldValue: rec.FiscalID},
		{Key: KeyCustomerType, FieldValue: rec.CustomerType},
		{Key: KeyProvince, FieldValue: rec.Province},
		{Key: KeyNeighborhood, FieldValue: rec.Neighborhood},
		{Key: KeyBillingAddress, FieldValue: rec.Address},
		{Key: KeyPostalCode, FieldValue: rec.PostalCode},
	}

	req := ghl.UpsertContactRequest{
		LocationID: locationID,
		FirstName:  rec.Name,
		Phone:      rec.PreferredPhone(),
	}
	if validate.IsEmail(rec.Email) {
		req.Email = rec.Email
		fields = append(fields, ghl.CustomField{Key: KeyBillingEmail, FieldValue: rec.Email})
	}
	req.CustomFields = fields
	return req
}

// Drain submits every row of the artifact at path. Per-record failures are
// logged, recorded and skipped. The artifact is deleted after a complete
// drain; when it cannot be opened or read it is left in place, an alert is
// raised and the error is returned.
func (e *Engine) Drain(ctx context.Context, path string) (Report, error) {
	var rep Report

	r, err := staging.Open(path)
	if err != nil {
		e.notifier.Notify(ctx, string(resilience.PhaseUpsert), err)
		return rep, eris.Wrap(err, "upsert: open artifact")
	}
	defer r.Close() //nolint:errcheck

	for {
		if err := ctx.Err(); err != nil {
			return rep, eris.Wrap(err, "upsert: drain cancelled")
		}

		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.notifier.Notify(ctx, string(resilience.PhaseUpsert), err)
			return rep, eris.Wrap(err, "upsert: read artifact")
		}

		rep.Total++
		if err := e.submit(ctx, rep.Total, row); err != nil {
			rep.Failed++
			continue
		}
		rep.Successful++
	}

	r.Close() //nolint:errcheck
	if err := staging.Remove(path); err != nil {
		e.log.Warn("failed to delete artifact", zap.String("path", path), zap.Error(err))
	}

	e.log.Info("upsert complete",
		zap.Int("total", rep.Total),
		zap.Int("successful", rep.Successful),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (e *Engine) submit(ctx context.Context, n int, row model.RawRow) error {
	erpID := ""
	if len(row) > 0 {
		erpID = row[0]
	}

	rec, err := model.MapRecord(row, e.schema)
	if err != nil {
		e.fail(ctx, n, erpID, err)
		return err
	}

	resp, err := e.client.UpsertContact(ctx, Payload(e.locationID, rec))
	if err != nil {
		e.fail(ctx, n, erpID, err)
		return err
	}

	e.log.Debug("contact upserted",
		zap.Int("row", n),
		zap.String("erp_id", erpID),
		zap.String("contact_id", resp.Contact.ID),
		zap.Bool("new", resp.New),
	)
	return nil
}

func (e *Engine) fail(ctx context.Context, n int, erpID string, err error) {
	e.log.Error("record failed",
		zap.Int("row", n),
		zap.String("erp_id", erpID),
		zap.Error(err),
	)
	entry := resilience.NewFailure(e.runID, resilience.PhaseUpsert, erpID, err)
	if rerr := e.recorder.RecordFailure(ctx, entry); rerr != nil {
		e.log.Warn("failed to record failure", zap.String("erp_id", erpID), zap.Error(rerr))
	}
}
