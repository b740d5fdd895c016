package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/monitoring"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/store"
	"github.com/sells-group/dux-ghl-sync/pkg/dux"
	"github.com/sells-group/dux-ghl-sync/pkg/ghl"
)

// dateLayout is the format accepted by --date and stored as a run window.
const dateLayout = "2006-01-02"

// syncEnv holds what every sync command needs.
type syncEnv struct {
	Store   store.Store
	Alerter *monitoring.Alerter
	Loc     *time.Location
}

// Close releases resources held by the environment.
func (e *syncEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode and opens the ledger. Any failure is sent
// through the alerter before it is returned. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode string) (*syncEnv, error) {
	alerter := monitoring.NewAlerter(cfg.Alert, logger)
	fail := func(err error) (*syncEnv, error) {
		alerter.Notify(ctx, string(resilience.PhaseInit), err)
		return nil, err
	}

	if err := cfg.Validate(mode); err != nil {
		return fail(err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}

	st, err := initStore(ctx)
	if err != nil {
		return fail(err)
	}

	return &syncEnv{
		Store:   st,
		Alerter: alerter,
		Loc:     loc,
	}, nil
}

// initStore opens and migrates the SQLite ledger, creating its directory.
func initStore(ctx context.Context) (store.Store, error) {
	if dir := filepath.Dir(cfg.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrap(err, "store: create directory")
		}
	}
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newGHLClient() ghl.Client {
	return ghl.NewClient(cfg.GHL.Key,
		ghl.WithBaseURL(cfg.GHL.BaseURL),
		ghl.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.GHL.TimeoutSecs) * time.Second}),
		ghl.WithRateLimit(cfg.GHL.RateLimit),
		ghl.WithLogger(logger.Named("ghl")),
	)
}

func newDuxClient() dux.Client {
	return dux.NewClient(cfg.Dux.Key, cfg.Dux.CompanyID,
		dux.WithBaseURL(cfg.Dux.BaseURL),
		dux.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Dux.TimeoutSecs) * time.Second}),
		dux.WithLogger(logger.Named("dux")),
	)
}

// resolveDay returns the --date value parsed in loc, or the configured
// offset from today when the flag is empty.
func resolveDay(flag string, loc *time.Location, offsetDays int, now time.Time) (time.Time, error) {
	if flag == "" {
		return config.Window(now, loc, offsetDays), nil
	}
	day, err := time.ParseInLocation(dateLayout, flag, loc)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse --date %q", flag)
	}
	return day, nil
}

// startRun records a new run in the ledger. When the insert fails the error
// is logged and an unrecorded run with a local id is returned so the sync
// still goes ahead.
func (e *syncEnv) startRun(ctx context.Context, kind model.RunKind, window string) *model.Run {
	run, err := e.Store.CreateRun(ctx, kind, window)
	if err == nil {
		return run
	}
	run = &model.Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    model.RunStatusRunning,
		Window:    window,
		StartedAt: time.Now().UTC(),
	}
	logger.Error("failed to record run start, continuing unrecorded",
		zap.String("run_id", run.ID),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return run
}

// finish closes out a ledger run, evaluates alert thresholds, and returns
// runErr unchanged. The ledger write ignores cancellation so an interrupted
// run is still recorded as failed.
func (e *syncEnv) finish(ctx context.Context, run *model.Run, c model.Counters, runErr error) error {
	ctx = context.WithoutCancel(ctx)

	status := model.RunStatusSucceeded
	msg := ""
	switch {
	case errors.Is(runErr, errNoData):
		status = model.RunStatusNoData
	case runErr != nil:
		status = model.RunStatusFailed
		msg = runErr.Error()
	}

	if err := e.Store.FinishRun(ctx, run.ID, status, c, msg); err != nil {
		logger.Error("failed to finish run", zap.String("run_id", run.ID), zap.Error(err))
	}
	run.Status = status
	run.Counters = c
	run.Error = msg

	e.Alerter.SendAlerts(ctx, e.Alerter.Evaluate(*run))

	logger.Info("run finished",
		zap.String("run_id", run.ID),
		zap.String("kind", string(run.Kind)),
		zap.String("status", string(status)),
		zap.Int("total", c.Total),
		zap.Int("successful", c.Successful),
		zap.Int("failed", c.Failed),
	)
	return runErr
}
