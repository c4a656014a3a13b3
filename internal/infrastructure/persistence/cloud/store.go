// Package cloud implements the persistence facade on a managed Postgres
// database with live subscriptions and object storage for files.
package cloud

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/storage"
)

// BackendName is reported by Store.Backend
const BackendName = "cloud"

var _ store.Store = (*Store)(nil)

// Options configures a cloud store
type Options struct {
	// Feed announces changes. Nil uses an in-process Hub.
	Feed ChangeFeed
	// Objects stores uploaded files. Nil uses a StubObjectStorage.
	Objects        storage.ObjectStorage
	AdminAllowList []string
	PasswordCost   int
	Logger         *zap.Logger
}

// Store implements store.Store with GORM
type Store struct {
	db             *gorm.DB
	feed           ChangeFeed
	objects        storage.ObjectStorage
	adminAllowList []string
	passwordCost   int
	logger         *zap.Logger
	now            func() time.Time

	// subCtx outlives requests; subscription refreshes run on it
	subCtx    context.Context
	subCancel context.CancelFunc
	closeOnce sync.Once
}

// New creates a store over db. The schema must already be migrated.
func New(db *gorm.DB, opts Options) (*Store, error) {
	if db == nil {
		return nil, errors.New("cloud store requires a database")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Feed == nil {
		opts.Feed = NewHub()
	}
	if opts.Objects == nil {
		opts.Objects = storage.NewStubObjectStorage("")
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = identity.DefaultPasswordCost
	}
	allow := make([]string, 0, len(opts.AdminAllowList))
	for _, e := range opts.AdminAllowList {
		if e = identity.NormalizeEmail(e); e != "" {
			allow = append(allow, e)
		}
	}

	subCtx, cancel := context.WithCancel(context.Background())
	return &Store{
		db:             db,
		feed:           opts.Feed,
		objects:        opts.Objects,
		adminAllowList: allow,
		passwordCost:   opts.PasswordCost,
		logger:         opts.Logger.With(zap.String("backend", BackendName)),
		now:            func() time.Time { return time.Now().UTC() },
		subCtx:         subCtx,
		subCancel:      cancel,
	}, nil
}

// Backend names the implementation
func (s *Store) Backend() string {
	return BackendName
}

// Close stops subscriptions and the change feed. The database belongs to the caller.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.subCancel()
		err = s.feed.Close()
	})
	return err
}

// DB exposes the underlying connection for health checks
func (s *Store) DB() *gorm.DB {
	return s.db
}

func newID() string {
	return uuid.NewString()
}

// publish announces a write. Failures are logged; the write already happened.
func (s *Store) publish(ctx context.Context, collection string) {
	if err := s.feed.Publish(context.WithoutCancel(ctx), collection); err != nil {
		s.logger.Warn("Failed to publish change", zap.String("collection", collection), zap.Error(err))
	}
}

// subscribe delivers query's result to fn now and after every change to collection
func subscribe[T any](ctx context.Context, s *Store, collection string, query func(context.Context) ([]T, error), fn func([]T)) (store.Unsubscribe, error) {
	items, err := query(ctx)
	if err != nil {
		return nil, err
	}
	fn(items)

	var mu sync.Mutex
	stopped := false
	remove := s.feed.Listen(collection, func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		fresh, err := query(s.subCtx)
		if err != nil {
			s.logger.Warn("Failed to refresh subscription", zap.String("collection", collection), zap.Error(err))
			return
		}
		fn(fresh)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			mu.Lock()
			stopped = true
			mu.Unlock()
		})
	}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
