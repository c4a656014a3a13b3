package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appidentity "github.com/tallypro/storefront/internal/application/identity"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	"github.com/tallypro/storefront/internal/infrastructure/persistence/local"
	"github.com/tallypro/storefront/internal/testutil"
)

type fixture struct {
	store     *local.Store
	sessions  kv.Store
	blacklist *auth.KVTokenBlacklist
	service   *appidentity.SessionService
}

func newFixture(t *testing.T, exposeOTP bool) *fixture {
	t.Helper()
	sessions := kv.NewMemoryStore()
	t.Cleanup(func() { _ = sessions.Close() })

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "session-test-secret-0123456789abcdef",
		AccessTokenExpiration: time.Hour,
		Issuer:                "tallypro-storefront",
	})
	f := &fixture{
		store:     testutil.NewLocalStore(t),
		sessions:  sessions,
		blacklist: auth.NewKVTokenBlacklist(sessions),
	}
	f.service = appidentity.NewSessionService(f.store, sessions, jwtService, f.blacklist,
		appidentity.SessionServiceConfig{OTPTTL: time.Minute, ExposeOTP: exposeOTP},
		zaptest.NewLogger(t),
	)
	return f
}

func TestSessionService_LoginRoleRules(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		path     identity.LoginPath
		wantErr  error
	}{
		{"customer on customer path", testutil.CustomerEmail, testutil.CustomerPassword, identity.LoginPathCustomer, nil},
		{"default path is customer", testutil.CustomerEmail, testutil.CustomerPassword, "", nil},
		{"customer on admin path", testutil.CustomerEmail, testutil.CustomerPassword, identity.LoginPathAdmin, identity.ErrAdminRequired},
		{"super admin on admin path", testutil.SuperAdminEmail, testutil.SuperAdminPass, identity.LoginPathAdmin, nil},
		{"admin on admin path", testutil.AdminEmail, testutil.AdminPass, identity.LoginPathAdmin, nil},
		{"admin on customer path", testutil.AdminEmail, testutil.AdminPass, identity.LoginPathCustomer, identity.ErrUseAdminLogin},
		{"wrong password", testutil.CustomerEmail, "wrong-password", identity.LoginPathCustomer, store.ErrInvalidCredentials},
		{"unknown email", "nobody@tallypro.in", "password123", identity.LoginPathCustomer, store.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			result, err := f.service.Login(context.Background(), appidentity.LoginInput{
				Email: tt.email, Password: tt.password, Path: tt.path,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, result.AccessToken)
			assert.Equal(t, "Bearer", result.TokenType)
			assert.Equal(t, identity.NormalizeEmail(tt.email), result.User.Email)
		})
	}
}

func TestSessionService_InactiveUsersCannotLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	require.NoError(t, f.store.UpdateUserStatus(ctx, testutil.CustomerID, identity.UserStatusInactive))

	_, err := f.service.Login(ctx, appidentity.LoginInput{
		Email: testutil.CustomerEmail, Password: testutil.CustomerPassword,
	})
	assert.ErrorIs(t, err, identity.ErrAccountInactive)
}

func TestSessionService_SessionMirror(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	result, err := f.service.Login(ctx, appidentity.LoginInput{
		Email: testutil.CustomerEmail, Password: testutil.CustomerPassword,
	})
	require.NoError(t, err)

	raw, err := f.sessions.Get(ctx, appidentity.SessionKeyPrefix+result.SessionID)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	current, err := f.service.Current(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "Rajesh Kumar", current.Name)
	assert.Equal(t, []string{"1"}, current.PurchasedProducts)

	_, err = f.store.GrantEntitlement(ctx, testutil.CustomerID, "3")
	require.NoError(t, err)
	refreshed, err := f.service.Refresh(ctx, result.SessionID)
	require.NoError(t, err)
	assert.True(t, refreshed.Owns("3"))

	current, err = f.service.Current(ctx, result.SessionID)
	require.NoError(t, err)
	assert.True(t, current.Owns("3"))

	_, err = f.service.Current(ctx, "missing")
	assert.ErrorIs(t, err, appidentity.ErrSessionNotFound)
}

func TestSessionService_RefreshEndsSessionOfDeactivatedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	result, err := f.service.Login(ctx, appidentity.LoginInput{
		Email: testutil.CustomerEmail, Password: testutil.CustomerPassword,
	})
	require.NoError(t, err)

	require.NoError(t, f.store.UpdateUserStatus(ctx, testutil.CustomerID, identity.UserStatusInactive))
	_, err = f.service.Refresh(ctx, result.SessionID)
	assert.ErrorIs(t, err, appidentity.ErrSessionNotFound)
	_, err = f.service.Current(ctx, result.SessionID)
	assert.ErrorIs(t, err, appidentity.ErrSessionNotFound)
}

func TestSessionService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	result, err := f.service.Login(ctx, appidentity.LoginInput{
		Email: testutil.CustomerEmail, Password: testutil.CustomerPassword,
	})
	require.NoError(t, err)

	claims, err := f.service.ValidateToken(ctx, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testutil.CustomerID, claims.UserID)

	require.NoError(t, f.service.Logout(ctx, result.SessionID, result.AccessToken))

	_, err = f.service.ValidateToken(ctx, result.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
	_, err = f.service.Current(ctx, result.SessionID)
	assert.ErrorIs(t, err, appidentity.ErrSessionNotFound)

	require.NoError(t, f.service.Logout(ctx, result.SessionID, ""), "logout is idempotent")
}

func TestSessionService_ValidateTokenHonorsUserInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	result, err := f.service.Login(ctx, appidentity.LoginInput{
		Email: testutil.CustomerEmail, Password: testutil.CustomerPassword,
	})
	require.NoError(t, err)

	require.NoError(t, f.blacklist.InvalidateUser(ctx, testutil.CustomerID, time.Hour))
	_, err = f.service.ValidateToken(ctx, result.AccessToken)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	_, err = f.service.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestSessionService_Signup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	result, err := f.service.Signup(ctx, appidentity.SignupInput{
		Name: "Priya Shah", Email: "Priya@Example.com", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", result.User.Email)
	assert.Equal(t, identity.RoleCustomer, result.User.Role)
	assert.Empty(t, result.User.PurchasedProducts)

	_, err = f.service.Signup(ctx, appidentity.SignupInput{
		Name: "Again", Email: "priya@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, store.ErrEmailAlreadyRegistered)

	_, err = f.service.Signup(ctx, appidentity.SignupInput{
		Name: "Short", Email: "short@example.com", Password: "1",
	})
	assert.Error(t, err)
}

func TestSessionService_OTPLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("code is hidden unless exposed", func(t *testing.T) {
		f := newFixture(t, false)
		issued, err := f.service.RequestOTP(ctx, testutil.CustomerEmail)
		require.NoError(t, err)
		assert.Empty(t, issued.Code)
		assert.Equal(t, testutil.CustomerEmail, issued.Email)
	})

	t.Run("exposed code signs the customer in once", func(t *testing.T) {
		f := newFixture(t, true)
		issued, err := f.service.RequestOTP(ctx, " USER@tallypro.in ")
		require.NoError(t, err)
		require.Len(t, issued.Code, identity.OTPLength)

		_, err = f.service.LoginWithOTP(ctx, testutil.CustomerEmail, "not-it")
		assert.ErrorIs(t, err, identity.ErrOTPMismatch)

		result, err := f.service.LoginWithOTP(ctx, testutil.CustomerEmail, issued.Code)
		require.NoError(t, err)
		assert.Equal(t, testutil.CustomerID, result.User.ID)

		_, err = f.service.LoginWithOTP(ctx, testutil.CustomerEmail, issued.Code)
		assert.ErrorIs(t, err, identity.ErrOTPUsed)
	})

	t.Run("administrators use the admin login", func(t *testing.T) {
		f := newFixture(t, true)
		issued, err := f.service.RequestOTP(ctx, testutil.AdminEmail)
		require.NoError(t, err)
		_, err = f.service.LoginWithOTP(ctx, testutil.AdminEmail, issued.Code)
		assert.ErrorIs(t, err, identity.ErrUseAdminLogin)
	})

	t.Run("unknown email", func(t *testing.T) {
		f := newFixture(t, true)
		issued, err := f.service.RequestOTP(ctx, "ghost@example.com")
		require.NoError(t, err)
		_, err = f.service.LoginWithOTP(ctx, "ghost@example.com", issued.Code)
		assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	})

	t.Run("no code requested", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.service.LoginWithOTP(ctx, testutil.CustomerEmail, "123456")
		assert.ErrorIs(t, err, store.ErrOTPNotFound)
	})
}
