package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	"github.com/tallypro/storefront/internal/infrastructure/persistence/cloud"
	"github.com/tallypro/storefront/internal/infrastructure/persistence/local"
	"github.com/tallypro/storefront/internal/infrastructure/storage"
)

// Deps are the process-wide resources the backends share
type Deps struct {
	Logger *zap.Logger
	// Medium backs the local store. It is owned by the caller. Nil uses memory.
	Medium kv.Store
	// Objects overrides the object storage of the cloud store
	Objects storage.ObjectStorage
}

// NewStore binds the persistence facade once per process: the cloud store
// when cfg has cloud credentials, otherwise the local emulation store
func NewStore(ctx context.Context, cfg *config.Config, deps Deps) (store.Store, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.HasCloudCredentials() {
		return newCloudStore(ctx, cfg, deps)
	}
	return newLocalStore(ctx, cfg, deps)
}

// NewMedium opens the key-value medium for sessions, carts and the local
// store: Redis when a client is given, a directory when local.data_dir is
// set, else memory
func NewMedium(cfg *config.Config, client *redis.Client) (kv.Store, error) {
	switch {
	case client != nil:
		return kv.NewRedisStoreWithClient(client, ""), nil
	case cfg.Local.DataDir != "":
		return kv.NewFileStore(cfg.Local.DataDir)
	default:
		return kv.NewMemoryStore(), nil
	}
}

func newLocalStore(ctx context.Context, cfg *config.Config, deps Deps) (store.Store, error) {
	medium := deps.Medium
	if medium == nil {
		medium = kv.NewMemoryStore()
	}
	s, err := local.New(ctx, local.Options{
		KV:           medium,
		Latency:      cfg.Local.Latency,
		PasswordCost: cfg.Local.PasswordCost,
		Admins:       cfg.Admin.Accounts,
		Logger:       deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	deps.Logger.Info("Persistence backend selected",
		zap.String("backend", s.Backend()),
		zap.Duration("latency", cfg.Local.Latency),
		zap.String("data_dir", cfg.Local.DataDir),
	)
	return s, nil
}

// cloudStore closes the database and change feed along with the store
type cloudStore struct {
	*cloud.Store
	database *Database
}

// PoolReporter is implemented by stores backed by a connection pool.
type PoolReporter interface {
	PoolStats() (ConnectionStats, error)
}

func (s *cloudStore) PoolStats() (ConnectionStats, error) {
	return s.database.Stats()
}

func (s *cloudStore) Close() error {
	return errors.Join(s.Store.Close(), s.database.Close())
}

func newCloudStore(ctx context.Context, cfg *config.Config, deps Deps) (store.Store, error) {
	database, err := NewDatabase(cfg, deps.Logger)
	if err != nil {
		return nil, err
	}

	feed, err := cloud.NewPGNotifier(database.DB, cfg.Database.DSN(), deps.Logger)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to start change listener: %w", err)
	}

	objects := deps.Objects
	if objects == nil {
		if objects, err = NewObjectStorage(ctx, cfg, deps.Logger); err != nil {
			_ = feed.Close()
			_ = database.Close()
			return nil, err
		}
	}

	s, err := cloud.New(database.DB, cloud.Options{
		Feed:           feed,
		Objects:        objects,
		AdminAllowList: cfg.Admin.AllowList,
		PasswordCost:   cfg.Local.PasswordCost,
		Logger:         deps.Logger,
	})
	if err != nil {
		_ = feed.Close()
		_ = database.Close()
		return nil, err
	}
	deps.Logger.Info("Persistence backend selected",
		zap.String("backend", s.Backend()),
		zap.String("host", cfg.Database.Host),
		zap.String("dbname", cfg.Database.DBName),
		zap.Bool("s3", cfg.Storage.Configured()),
	)
	return &cloudStore{Store: s, database: database}, nil
}

// NewObjectStorage returns S3 storage when a bucket is configured, else a
// stub that serves under storage.public_base_url
func NewObjectStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.ObjectStorage, error) {
	if !cfg.Storage.Configured() {
		return storage.NewStubObjectStorage(cfg.Storage.PublicBaseURL), nil
	}
	s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage: %w", err)
	}
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	return s3, nil
}
