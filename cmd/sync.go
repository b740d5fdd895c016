package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncDate string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run the contacts sync followed by invoice reconciliation",
	Long: "Runs contacts then invoices. A failed contacts run does not stop " +
		"reconciliation; an empty customer grid is not an error here.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx, "sync")
		if err != nil {
			return err
		}
		defer env.Close()

		now := time.Now()
		contactsDay, err := resolveDay(syncDate, env.Loc, cfg.Extract.WindowOffsetDays, now)
		if err != nil {
			return err
		}
		invoicesDay, err := resolveDay(syncDate, env.Loc, cfg.Reconcile.WindowOffsetDays, now)
		if err != nil {
			return err
		}

		contactsErr := runContacts(ctx, env, contactsDay)
		if errors.Is(contactsErr, errNoData) {
			contactsErr = nil
		}
		if contactsErr != nil {
			logger.Error("contacts run failed", zap.Error(contactsErr))
		}
		if err := ctx.Err(); err != nil {
			return errors.Join(contactsErr, err)
		}

		return errors.Join(contactsErr, runInvoices(ctx, env, invoicesDay))
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncDate, "date", "", "override both windows with YYYY-MM-DD")
	rootCmd.AddCommand(syncCmd)
}
