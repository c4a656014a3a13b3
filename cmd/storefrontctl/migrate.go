package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/infrastructure/migration"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the cloud database schema",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: nearest ./migrations)")

	dir := func() (string, error) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return migration.FindDir(path, wd)
	}

	// withMigrator opens a Migrator for commands that need the database
	withMigrator := func(fn func(*migration.Migrator) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			if !root.cfg.HasCloudCredentials() {
				return fmt.Errorf("database.host, database.user and database.dbname must be set")
			}
			d, err := dir()
			if err != nil {
				return err
			}
			m, err := migration.NewFromURL(root.cfg.Database.DSN(), d, root.log)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					root.log.Warn("Failed to close migrator", zap.Error(err))
				}
			}()
			return fn(m)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(func(m *migration.Migrator) error { return m.Up() }),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(func(m *migration.Migrator) error { return m.Down() }),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations, or roll back when n is negative",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Steps(n) })(c, args)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migration.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the schema version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(m *migration.Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d, dirty %t, pending %d\n", st.Version, st.Dirty, st.Pending)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return withMigrator(func(m *migration.Migrator) error { return m.Force(v) })(c, args)
			},
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Scaffold the next migration pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				d, err := dir()
				if err != nil {
					d = migration.DefaultDir
				}
				description := ""
				if len(args) > 1 {
					description = args[1]
				}
				f, err := migration.Create(d, args[0], description)
				if err != nil {
					return err
				}
				root.log.Info("Migration created",
					zap.Uint("version", f.Version),
					zap.String("up", f.UpPath),
					zap.String("down", f.DownPath),
				)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List migrations on disk",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				d, err := dir()
				if err != nil {
					return err
				}
				files, err := migration.ListMigrations(d)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintf(cmd.OutOrStdout(), "%06d  %s\n", f.Version, f.Name)
				}
				return nil
			},
		},
	)
	return cmd
}
