// Package migration applies the SQL schema of the cloud backend with
// golang-migrate and scaffolds new migration files.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// DefaultDir is the migrations directory relative to the repository root
const DefaultDir = "migrations"

const migrationsTable = "storefront_schema_migrations"

// Migrator runs schema migrations against the cloud database
type Migrator struct {
	m      *migrate.Migrate
	dir    string
	logger *zap.Logger
}

// Status describes the schema state
type Status struct {
	Version uint
	Dirty   bool
	Pending int
}

// New creates a Migrator over an open connection. Closing the Migrator
// closes db as well.
func New(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL(dir), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}
	return newMigrator(m, dir, logger), nil
}

// NewFromURL creates a Migrator that opens its own connection to databaseURL
func NewFromURL(databaseURL, dir string, logger *zap.Logger) (*Migrator, error) {
	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	m, err := migrate.New(sourceURL(dir), databaseURL+sep+"x-migrations-table="+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations from %s: %w", dir, err)
	}
	return newMigrator(m, dir, logger), nil
}

func newMigrator(m *migrate.Migrate, dir string, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{m: m, dir: dir, logger: logger.With(zap.String("component", "migration"))}
}

func sourceURL(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return "file://" + filepath.ToSlash(abs)
}

// FindDir locates the migrations directory, searching from start upwards.
// An explicit path is returned unchanged.
func FindDir(explicit, start string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	dir := start
	for {
		candidate := filepath.Join(dir, DefaultDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s directory found above %s", DefaultDir, start)
		}
		dir = parent
	}
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	err := m.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema is up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logApplied("Schema migrated")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	err := m.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	m.logger.Info("Schema rolled back")
	return nil
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	err := m.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration steps %d failed: %w", n, err)
	}
	return m.logApplied("Migration steps applied")
}

// Version returns the applied version. A fresh database reports 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// Status reports the applied version and the number of pending migrations
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	files, err := ListMigrations(m.dir)
	if err != nil {
		return Status{}, err
	}
	pending := 0
	for _, f := range files {
		if f.Version > version {
			pending++
		}
	}
	return Status{Version: version, Dirty: dirty, Pending: pending}, nil
}

// Force records version without running anything, clearing the dirty flag
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing schema version", zap.Int("version", version))
	if err := m.m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

func (m *Migrator) logApplied(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Close releases the source and the database connection
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.m.Close()
	return errors.Join(sourceErr, dbErr)
}
