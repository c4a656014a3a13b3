// Command storefrontctl is the operator CLI of the storefront: schema
// migrations for the cloud backend and on-demand entitlement reconciliation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/logger"
)

type rootOptions struct {
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operate the TallyPro storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			level := cfg.Log.Level
			if opts.logLevel != "" {
				level = opts.logLevel
			}
			log, err := logger.New(&logger.Config{
				Level:      level,
				Format:     "console",
				Output:     "stderr",
				TimeFormat: "15:04:05",
				Service:    "storefrontctl",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.cfg = cfg
			opts.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.log != nil {
				_ = logger.Sync(opts.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(newMigrateCommand(opts), newReconcileCommand(opts))
	return root
}
