// Package local emulates the cloud backend on a key-value medium. It is
// selected when no cloud credentials are configured and serves demos and tests.
package local

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

// BackendName is reported by Store.Backend
const BackendName = "local"

const (
	keyPrefix    = "tallypro_"
	keyProducts  = keyPrefix + "products"
	keyUsers     = keyPrefix + "users"
	keyOrders    = keyPrefix + "orders"
	keyTickets   = keyPrefix + "tickets"
	keyFeedbacks = keyPrefix + "feedbacks"
	keyOTPs      = keyPrefix + "otps"
	keyFiles     = keyPrefix + "files_"
)

var (
	_ store.Store                 = (*Store)(nil)
	_ store.GuestCredentialIssuer = (*Store)(nil)
)

// Options configures a local store
type Options struct {
	// KV is the medium. It is owned by the caller and not closed by Close.
	KV           kv.Store
	Latency      time.Duration
	PasswordCost int
	Admins       []config.AdminAccount
	Logger       *zap.Logger
}

// Store implements store.Store over JSON snapshots of each collection.
// A mutex serializes read-modify-write cycles within this process; across
// processes sharing a medium, the last write wins.
type Store struct {
	kv           kv.Store
	latency      time.Duration
	passwordCost int
	logger       *zap.Logger
	now          func() time.Time

	mu sync.RWMutex
}

// userRecord is a user together with its password hash
type userRecord struct {
	identity.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

// New opens the store, seeding sample data on first use and re-asserting
// the configured administrator accounts
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("local store requires a key-value medium")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = identity.DefaultPasswordCost
	}

	s := &Store{
		kv:           opts.KV,
		latency:      opts.Latency,
		passwordCost: opts.PasswordCost,
		logger:       opts.Logger.With(zap.String("backend", BackendName)),
		now:          func() time.Time { return time.Now().UTC() },
	}

	if err := s.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed local store: %w", err)
	}
	if err := s.assertAdmins(ctx, opts.Admins); err != nil {
		return nil, fmt.Errorf("failed to assert admin accounts: %w", err)
	}
	return s, nil
}

// Backend names the implementation
func (s *Store) Backend() string {
	return BackendName
}

// Close releases nothing; the medium belongs to the caller
func (s *Store) Close() error {
	return nil
}

// wait simulates network latency and honors cancellation
func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// load reads a collection. A missing key is an empty collection.
func load[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func save[T any](ctx context.Context, s *Store, key string, items []T) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw, 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func exists(ctx context.Context, s *Store, key string) (bool, error) {
	_, err := s.kv.Get(ctx, key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newID returns prefix_<base36 millis><4 random base36 chars>
func (s *Store) newID(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(s.now().UnixMilli(), 36))
	limit := big.NewInt(int64(len(idAlphabet)))
	for range 4 {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b.WriteByte(idAlphabet[n.Int64()])
	}
	return b.String()
}

func prepend[T any](items []T, item T) []T {
	return append([]T{item}, items...)
}
