package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	"github.com/tallypro/storefront/internal/infrastructure/persistence/local"
)

// Seeded accounts of the local store
const (
	CustomerEmail    = "user@tallypro.in"
	CustomerPassword = "password123"
	CustomerID       = "u1"
	SuperAdminEmail  = "owner@tallypro.in"
	SuperAdminPass   = "Admin@123"
	AdminEmail       = "admin@tallypro.in"
	AdminPass        = "Admin@456"
)

// Admins are the administrator accounts NewLocalStore re-asserts
var Admins = []config.AdminAccount{
	{Name: "Super Admin", Email: SuperAdminEmail, Password: SuperAdminPass, Role: "super_admin"},
	{Name: "Admin", Email: AdminEmail, Password: AdminPass, Role: "admin"},
}

// NewLocalStore opens a seeded local store on a fresh memory medium with
// no artificial latency
func NewLocalStore(t *testing.T) *local.Store {
	t.Helper()
	medium := kv.NewMemoryStore()
	t.Cleanup(func() { _ = medium.Close() })

	s, err := local.New(context.Background(), local.Options{
		KV:           medium,
		PasswordCost: bcrypt.MinCost,
		Admins:       Admins,
		Logger:       zaptest.NewLogger(t),
	})
	require.NoError(t, err, "Failed to open local store")
	return s
}
