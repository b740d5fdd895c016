package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/reconcile"
	"github.com/sells-group/dux-ghl-sync/internal/resolve"
)

var invoicesDate string

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Reconcile a day's DUX invoices onto GoHighLevel contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "invoices")
		if err != nil {
			return err
		}
		defer env.Close()

		day, err := resolveDay(invoicesDate, env.Loc, cfg.Reconcile.WindowOffsetDays, time.Now())
		if err != nil {
			return err
		}
		return runInvoices(ctx, env, day)
	},
}

func init() {
	invoicesCmd.Flags().StringVar(&invoicesDate, "date", "", "invoice day as YYYY-MM-DD (default yesterday)")
	rootCmd.AddCommand(invoicesCmd)
}

// runInvoices walks every branch's invoices for day and updates the matched
// contacts.
func runInvoices(ctx context.Context, env *syncEnv, day time.Time) error {
	run := env.startRun(ctx, model.RunKindInvoices, day.Format(dateLayout))
	log := logger.With(zap.String("run_id", run.ID))
	log.Info("invoices run started", zap.String("window", run.Window))

	crm := newGHLClient()
	engine := reconcile.New(newDuxClient(), crm, resolve.New(crm, cfg.GHL.LocationID, log),
		reconcile.OptionsFromConfig(cfg.Reconcile), log,
		reconcile.WithRecorder(env.Store),
		reconcile.WithNotifier(env.Alerter),
		reconcile.WithRunID(run.ID),
	)

	rep, err := engine.Run(ctx, day)
	log.Info("reconciliation report",
		zap.Int("subunits", rep.Subunits),
		zap.Int("subunit_failures", rep.SubunitFailures),
		zap.Int("matched", rep.Matched),
	)
	return env.finish(ctx, run, rep.Counters(), err)
}
