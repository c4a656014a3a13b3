package sales_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appsales "github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/testutil"
)

type ledgerStore struct {
	store.Store
	mock.Mock
}

func (m *ledgerStore) GetOrders(ctx context.Context) ([]sales.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sales.Order), args.Error(1)
}

func (m *ledgerStore) GetUserByID(ctx context.Context, id string) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *ledgerStore) GrantEntitlement(ctx context.Context, userID, productID string) (bool, error) {
	args := m.Called(ctx, userID, productID)
	return args.Bool(0), args.Error(1)
}

func TestReconciler_GrantsMissingEntitlements(t *testing.T) {
	ctx := context.Background()
	s := &ledgerStore{}
	s.On("GetOrders", mock.Anything).Return([]sales.Order{
		{ID: "o1", UserID: "u1", ProductID: "1", Status: sales.OrderStatusSuccess},
		{ID: "o2", UserID: "u1", ProductID: "2", Status: sales.OrderStatusSuccess},
		{ID: "o3", UserID: "u1", ProductID: "2", Status: sales.OrderStatusSuccess},
		{ID: "o4", UserID: "u1", ProductID: "3", Status: sales.OrderStatusRefunded},
		{ID: "o5", UserID: "gone", ProductID: "1", Status: sales.OrderStatusSuccess},
		{ID: "o6", UserID: "u2", ProductID: "4", Status: sales.OrderStatusSuccess},
	}, nil)
	s.On("GetUserByID", mock.Anything, "u1").Return(&identity.User{ID: "u1", PurchasedProducts: []string{"1"}}, nil).Once()
	s.On("GetUserByID", mock.Anything, "gone").Return(nil, nil).Once()
	s.On("GetUserByID", mock.Anything, "u2").Return(&identity.User{ID: "u2"}, nil).Once()
	s.On("GrantEntitlement", mock.Anything, "u1", "2").Return(true, nil).Once()
	s.On("GrantEntitlement", mock.Anything, "u2", "4").Return(false, errors.New("timeout")).Once()

	report, err := appsales.NewReconciler(s, zaptest.NewLogger(t)).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, appsales.ReconcileReport{Scanned: 5, Granted: 1, Failed: 2}, report)
	s.AssertExpectations(t)
}

func TestReconciler_LedgerUnreadable(t *testing.T) {
	s := &ledgerStore{}
	s.On("GetOrders", mock.Anything).Return(nil, errors.New("offline"))

	_, err := appsales.NewReconciler(s, nil).Reconcile(context.Background())
	assert.ErrorContains(t, err, "offline")
}

func TestReconciler_LocalStoreIsConsistent(t *testing.T) {
	s := testutil.NewLocalStore(t)
	report, err := appsales.NewReconciler(s, nil).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Granted)
	assert.Equal(t, 0, report.Failed)
	assert.Positive(t, report.Scanned)
}
