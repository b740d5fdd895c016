package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/extract"
	"github.com/sells-group/dux-ghl-sync/internal/grid"
	"github.com/sells-group/dux-ghl-sync/internal/mirror"
	"github.com/sells-group/dux-ghl-sync/internal/model"
	"github.com/sells-group/dux-ghl-sync/internal/resilience"
	"github.com/sells-group/dux-ghl-sync/internal/upsert"
)

var (
	contactsSource string
	contactsDate   string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Upsert the DUX customer grid into GoHighLevel contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if contactsSource != "" {
			cfg.Extract.SourcePath = contactsSource
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, "contacts")
		if err != nil {
			return err
		}
		defer env.Close()

		day, err := resolveDay(contactsDate, env.Loc, cfg.Extract.WindowOffsetDays, time.Now())
		if err != nil {
			return err
		}
		return runContacts(ctx, env, day)
	},
}

func init() {
	contactsCmd.Flags().StringVar(&contactsSource, "source", "", "grid export to read (default from config)")
	contactsCmd.Flags().StringVar(&contactsDate, "date", "", "run window as YYYY-MM-DD (default today)")
	rootCmd.AddCommand(contactsCmd)
}

// runContacts extracts the grid page by page and upserts each staged batch.
// A first page without rows returns errNoData; an empty page later on ends
// the run normally.
func runContacts(ctx context.Context, env *syncEnv, day time.Time) error {
	run := env.startRun(ctx, model.RunKindContacts, day.Format(dateLayout))
	log := logger.With(zap.String("run_id", run.ID))
	log.Info("contacts run started", zap.String("source", cfg.Extract.SourcePath), zap.String("window", run.Window))

	src, err := grid.Open(cfg.Extract.SourcePath, grid.Options{
		Format:    cfg.Extract.SourceFormat,
		Charset:   cfg.Extract.Charset,
		PageSize:  cfg.Extract.PageSize,
		HasHeader: cfg.Extract.HasHeader,
	})
	if err != nil {
		env.Alerter.Notify(ctx, string(resilience.PhaseExtract), err)
		return env.finish(ctx, run, model.Counters{}, err)
	}

	engine := upsert.New(newGHLClient(), cfg.GHL.LocationID, log,
		upsert.WithRecorder(env.Store),
		upsert.WithNotifier(env.Alerter),
		upsert.WithRunID(run.ID),
	)

	var mir extract.Mirror
	if cfg.Mirror.Path != "" {
		mir = mirror.NewXLSX(cfg.Mirror.Path, model.DefaultSchema)
	}

	x := extract.New(src, engine, mir, extract.OptionsFromConfig(cfg.Extract), log,
		extract.WithNotifier(env.Alerter),
	)
	res, err := x.Run(ctx)
	if errors.Is(err, extract.ErrNoRowsFound) {
		if res.Pages == 1 {
			log.Info("no rows found to process")
			err = errNoData
		} else {
			err = nil
		}
	}
	return env.finish(ctx, run, res.Counters(), err)
}
