package sales_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tallypro/storefront/internal/application/checkout"
	appsales "github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/testutil"
)

// captureOpener records the callbacks instead of opening a widget
type captureOpener struct {
	purchase  checkout.Purchase
	onSuccess checkout.SuccessFunc
	onFailure checkout.FailureFunc
	err       error
}

func (c *captureOpener) Open(_ context.Context, p checkout.Purchase, onSuccess checkout.SuccessFunc, onFailure checkout.FailureFunc) (*checkout.WidgetOptions, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.purchase, c.onSuccess, c.onFailure = p, onSuccess, onFailure
	return &checkout.WidgetOptions{OrderID: "order_1", Amount: p.Product.MinorUnits()}, nil
}

// orderFailingStore fails CreateOrder with a configured error
type orderFailingStore struct {
	store.Store
	mock.Mock
}

func (m *orderFailingStore) CreateOrder(ctx context.Context, userID string, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error) {
	args := m.Called(ctx, userID, product.ID, details.PaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Order), args.Error(1)
}

func TestPurchaseService_BeginCheckout(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	opener := &captureOpener{}
	svc := appsales.NewPurchaseService(s, opener, zaptest.NewLogger(t))

	t.Run("rejects an owned module before opening", func(t *testing.T) {
		_, err := svc.BeginCheckout(ctx, testutil.CustomerID, "1", sales.PurchaseDetails{})
		assert.ErrorIs(t, err, appsales.ErrAlreadyOwned)
		assert.Nil(t, opener.onSuccess)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.BeginCheckout(ctx, testutil.CustomerID, "nope", sales.PurchaseDetails{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("soft deleted product", func(t *testing.T) {
		require.NoError(t, s.DeleteProduct(ctx, "4"))
		_, err := svc.BeginCheckout(ctx, testutil.CustomerID, "4", sales.PurchaseDetails{})
		assert.ErrorIs(t, err, appsales.ErrProductUnavailable)
	})

	t.Run("success records the order and grants the module", func(t *testing.T) {
		opts, err := svc.BeginCheckout(ctx, testutil.CustomerID, "2", sales.PurchaseDetails{TallySerial: "780012345"})
		require.NoError(t, err)
		assert.Equal(t, int64(249900), opts.Amount)
		assert.Equal(t, "Rajesh Kumar", opener.purchase.User.Name)

		outcome := opener.onSuccess(ctx, "pay_42")
		assert.Equal(t, checkout.OutcomeSucceeded, outcome.Status)
		require.NotNil(t, outcome.Order)
		assert.Equal(t, "pay_42", outcome.Order.PaymentID)
		assert.Equal(t, "780012345", outcome.Order.TallySerial)

		user, err := s.GetUserByID(ctx, testutil.CustomerID)
		require.NoError(t, err)
		assert.True(t, user.Owns("2"))
	})

	t.Run("failure reports the widget error", func(t *testing.T) {
		_, err := svc.BeginCheckout(ctx, testutil.CustomerID, "3", sales.PurchaseDetails{})
		require.NoError(t, err)
		outcome := opener.onFailure(ctx, payment.FailureDetail{Code: "BAD_REQUEST_ERROR", Description: "Card declined"})
		assert.Equal(t, checkout.OutcomeFailed, outcome.Status)
		assert.Equal(t, "Card declined", outcome.Message)
	})

	t.Run("bridge errors pass through", func(t *testing.T) {
		failing := appsales.NewPurchaseService(s, &captureOpener{err: payment.ErrWidgetUnavailable}, nil)
		_, err := failing.BeginCheckout(ctx, testutil.CustomerID, "3", sales.PurchaseDetails{})
		assert.ErrorIs(t, err, payment.ErrWidgetUnavailable)
	})
}

func TestPurchaseService_PartialOutcomes(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		order   *sales.Order
		err     error
		message string
	}{
		{"recording failed", nil, errors.New("connection reset"), appsales.PartialOutcomeMessage},
		{"entitlement pending", &sales.Order{ID: "ord_9"}, store.EntitlementPending(errors.New("disk full")), appsales.PendingEntitlementMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &orderFailingStore{Store: testutil.NewLocalStore(t)}
			s.On("CreateOrder", mock.Anything, testutil.CustomerID, "2", "pay_1").Return(tt.order, tt.err)
			opener := &captureOpener{}
			svc := appsales.NewPurchaseService(s, opener, zaptest.NewLogger(t))

			_, err := svc.BeginCheckout(ctx, testutil.CustomerID, "2", sales.PurchaseDetails{})
			require.NoError(t, err)

			outcome := opener.onSuccess(ctx, "pay_1")
			assert.Equal(t, checkout.OutcomePartial, outcome.Status)
			assert.Equal(t, tt.message, outcome.Message)
			assert.Equal(t, "pay_1", outcome.PaymentID)
			s.AssertExpectations(t)
		})
	}
}

func TestPurchaseService_GuestCheckout(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	opener := &captureOpener{}
	svc := appsales.NewPurchaseService(s, opener, zaptest.NewLogger(t))

	_, err := svc.BeginGuestCheckout(ctx, "not-an-email", "2", sales.PurchaseDetails{})
	require.Error(t, err)

	_, err = svc.BeginGuestCheckout(ctx, " New.Buyer@Example.com ", "2", sales.PurchaseDetails{})
	require.NoError(t, err)
	assert.Equal(t, "new.buyer", opener.purchase.User.Name)
	assert.Empty(t, opener.purchase.User.ID)

	outcome := opener.onSuccess(ctx, "pay_7")
	require.Equal(t, checkout.OutcomeSucceeded, outcome.Status)
	require.NotNil(t, outcome.User)
	assert.Equal(t, "new.buyer@example.com", outcome.User.Email)
	assert.NotEmpty(t, outcome.GuestPassword)
	assert.True(t, outcome.User.Owns("2"))

	_, err = svc.BeginGuestCheckout(ctx, "new.buyer@example.com", "2", sales.PurchaseDetails{})
	assert.ErrorIs(t, err, appsales.ErrAlreadyOwned)
}

// mapClaims redeems gateway orders held in a map
type mapClaims map[string]*payment.GatewayOrder

func (m mapClaims) Claim(_ context.Context, orderID string, accept func(*payment.GatewayOrder) error) (*payment.GatewayOrder, error) {
	o, ok := m[orderID]
	if !ok {
		return nil, payment.ErrCheckoutNotFound
	}
	if err := accept(o); err != nil {
		return nil, err
	}
	delete(m, orderID)
	return o, nil
}

func gatewayOrder(id string, amount int64) *payment.GatewayOrder {
	return &payment.GatewayOrder{ID: id, Amount: amount, Currency: "INR", Notes: map[string]string{}}
}

func TestPurchaseService_GuestPurchaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewLocalStore(t)
	claims := mapClaims{
		"order_a": gatewayOrder("order_a", 349900),
		"order_b": gatewayOrder("order_b", 349900),
	}
	svc := appsales.NewPurchaseService(s, &captureOpener{}, nil).WithOrderClaims(claims, "INR")

	first, password, err := svc.GuestPurchase(ctx, "guest@example.com", "3", payment.Confirmation{OrderID: "order_a", PaymentID: "pay_a"}, sales.PurchaseDetails{})
	require.NoError(t, err)
	assert.NotEmpty(t, password)

	second, password, err := svc.GuestPurchase(ctx, "GUEST@example.com", "3", payment.Confirmation{OrderID: "order_b", PaymentID: "pay_b"}, sales.PurchaseDetails{})
	require.NoError(t, err)
	assert.Empty(t, password)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"3"}, second.PurchasedProducts)

	orders, err := s.GetOrdersByUser(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.ElementsMatch(t, []string{"pay_a", "pay_b"}, []string{orders[0].PaymentID, orders[1].PaymentID})
}

func TestPurchaseService_GuestPurchaseRedeemsGatewayOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		claims  appsales.OrderClaimer
		product string
		order   *payment.GatewayOrder
		wantErr error
	}{
		{"claims disabled", nil, "3", nil, payment.ErrCheckoutNotFound},
		{"unknown order", mapClaims{}, "3", nil, payment.ErrCheckoutNotFound},
		{"amount differs", mapClaims{}, "1", gatewayOrder("order_x", 349900), payment.ErrPaymentMismatch},
		{"currency differs", mapClaims{}, "3", &payment.GatewayOrder{ID: "order_x", Amount: 349900, Currency: "USD"}, payment.ErrPaymentMismatch},
		{"opened for another product", mapClaims{}, "3", &payment.GatewayOrder{ID: "order_x", Amount: 349900, Currency: "INR", Notes: map[string]string{"product_id": "2"}}, payment.ErrPaymentMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewLocalStore(t)
			svc := appsales.NewPurchaseService(s, &captureOpener{}, nil)
			if tt.claims != nil {
				if tt.order != nil {
					tt.claims.(mapClaims)[tt.order.ID] = tt.order
				}
				svc.WithOrderClaims(tt.claims, "INR")
			}

			user, _, err := svc.GuestPurchase(ctx, "nobody@example.com", tt.product, payment.Confirmation{OrderID: "order_x", PaymentID: "pay_x"}, sales.PurchaseDetails{})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, user)
			existing, err := s.GetUserByEmail(ctx, "nobody@example.com")
			require.NoError(t, err)
			assert.Nil(t, existing)
		})
	}

	t.Run("second redemption of the same order", func(t *testing.T) {
		s := testutil.NewLocalStore(t)
		claims := mapClaims{"order_once": gatewayOrder("order_once", 349900)}
		svc := appsales.NewPurchaseService(s, &captureOpener{}, nil).WithOrderClaims(claims, "INR")
		c := payment.Confirmation{OrderID: "order_once", PaymentID: "pay_once"}

		_, _, err := svc.GuestPurchase(ctx, "first@example.com", "3", c, sales.PurchaseDetails{})
		require.NoError(t, err)
		_, _, err = svc.GuestPurchase(ctx, "second@example.com", "1", c, sales.PurchaseDetails{})
		assert.ErrorIs(t, err, payment.ErrCheckoutNotFound)
	})
}
