package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dux-ghl-sync/internal/config"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// errNoData marks a run that found nothing to process.
var errNoData = errors.New("no data")

var rootCmd = &cobra.Command{
	Use:   "dux-ghl-sync",
	Short: "Sync DUX ERP customers and invoices into GoHighLevel",
	Long: "Upserts the DUX customer grid into GoHighLevel contacts and reconciles " +
		"each day's DUX invoices onto the matching contacts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		zap.ReplaceGlobals(l)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// exitCode maps a command error onto the process exit status:
// 0 success, 1 fatal, 2 no data.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNoData):
		return 2
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if code == 1 {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(code)
}
