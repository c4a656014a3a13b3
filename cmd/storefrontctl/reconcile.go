package main

import (
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appsales "github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	"github.com/tallypro/storefront/internal/infrastructure/persistence"
)

func newReconcileCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Grant entitlements missing for successful orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := root.cfg

			var client *redis.Client
			if cfg.Redis.Enabled {
				var err error
				client, err = kv.Dial(ctx, kv.RedisConfig{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				if err != nil {
					return err
				}
				defer func() { _ = client.Close() }()
			}
			medium, err := persistence.NewMedium(cfg, client)
			if err != nil {
				return err
			}
			defer func() { _ = medium.Close() }()

			st, err := persistence.NewStore(ctx, cfg, persistence.Deps{Logger: root.log, Medium: medium})
			if err != nil {
				return err
			}
			defer func() {
				if err := st.Close(); err != nil {
					root.log.Warn("Failed to close store", zap.Error(err))
				}
			}()

			report, err := appsales.NewReconciler(st, root.log).Reconcile(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
