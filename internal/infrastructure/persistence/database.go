// Package persistence opens the configured backend and binds it to the
// store.Store facade.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/logger"
	"github.com/tallypro/storefront/internal/infrastructure/telemetry"
)

// SlowQueryThreshold is reported by the gorm logger and database spans
const SlowQueryThreshold = 200 * time.Millisecond

// Database holds the cloud backend connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to Postgres with the pool settings of cfg.Database,
// gorm logging through zap and, when enabled, database tracing
func NewDatabase(cfg *config.Config, log *zap.Logger) (*Database, error) {
	return openDatabase(postgres.Open(cfg.Database.DSN()), cfg, log)
}

func openDatabase(dialector gorm.Dialector, cfg *config.Config, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), SlowQueryThreshold),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Database{DB: db}
	sqlDB, err := d.pool()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.Database.ConnMaxIdleTime) * time.Minute)

	if err := d.Ping(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db, SlowQueryThreshold, log); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enable database tracing: %w", err)
		}
	}
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	return sqlDB, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.pool()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping is the readiness probe of the cloud backend.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.pool()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// ConnectionStats is the subset of sql.DBStats the storefront reports.
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.pool()
	if err != nil {
		return ConnectionStats{}, err
	}
	st := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: st.MaxOpenConnections,
		OpenConnections:    st.OpenConnections,
		InUse:              st.InUse,
		Idle:               st.Idle,
		WaitCount:          st.WaitCount,
		WaitDuration:       st.WaitDuration,
	}, nil
}
