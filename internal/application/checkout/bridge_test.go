package checkout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/infrastructure/cache"
	infrapayment "github.com/tallypro/storefront/internal/infrastructure/payment"
)

type fakeScripts struct {
	err   error
	calls atomic.Int32
}

func (f *fakeScripts) Load(context.Context) (*infrapayment.Script, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &infrapayment.Script{Body: []byte("window.Razorpay = function(){}")}, nil
}

type failingGateway struct{ payment.Gateway }

func (failingGateway) CreateOrder(context.Context, *payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	return nil, payment.ErrGatewayUnavailable
}

type recorder struct {
	successes []string
	failures  []payment.FailureDetail
}

func (r *recorder) onSuccess(_ context.Context, paymentID string) *Outcome {
	r.successes = append(r.successes, paymentID)
	return &Outcome{Status: OutcomeSucceeded, PaymentID: paymentID}
}

func (r *recorder) onFailure(_ context.Context, d payment.FailureDetail) *Outcome {
	r.failures = append(r.failures, d)
	return &Outcome{Status: OutcomeFailed, Message: d.Error(), Failure: &d}
}

func testConfig() Config {
	return Config{
		MerchantName: "TallyPro Solutions",
		ThemeColor:   "#3399cc",
		Currency:     "INR",
		NotesAddress: "TallyPro Corporate Office",
		KeySecret:    infrapayment.StubGatewaySecret,
	}
}

func testPurchase(t *testing.T) Purchase {
	t.Helper()
	product, err := catalog.NewProduct("1", "Auto-GST Reconciliation Pro", "", decimal.NewFromInt(4999), catalog.CategoryReports)
	require.NoError(t, err)
	user, err := identity.NewCustomer("u1", "Rajesh Kumar", "user@tallypro.in")
	require.NoError(t, err)
	return Purchase{Product: product, User: user}
}

func newTestBridge(t *testing.T, gateway payment.Gateway, scripts ScriptSource) (*Bridge, *cache.InMemoryGuard) {
	t.Helper()
	guard := cache.NewInMemoryGuard()
	t.Cleanup(func() { _ = guard.Close() })
	b := NewBridge(gateway, scripts, guard, testConfig(), zaptest.NewLogger(t))
	b.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return b, guard
}

func TestBridge_OpenWidgetOptions(t *testing.T) {
	b, _ := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
	rec := &recorder{}

	opts, err := b.Open(context.Background(), testPurchase(t), rec.onSuccess, rec.onFailure)
	require.NoError(t, err)

	assert.Equal(t, int64(499900), opts.Amount)
	assert.Equal(t, "Purchase Auto-GST Reconciliation Pro", opts.Description)
	assert.True(t, b.Pending(opts.OrderID))

	g := goldie.New(t)
	g.AssertJson(t, "widget_options", opts)
}

func TestBridge_SecondOpenWhilePending(t *testing.T) {
	b, _ := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
	rec := &recorder{}
	ctx := context.Background()

	first, err := b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	require.NoError(t, err)

	_, err = b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	assert.ErrorIs(t, err, payment.ErrCheckoutInProgress)

	require.NoError(t, b.Dismiss(ctx, first.OrderID))
	_, err = b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	assert.NoError(t, err)
	assert.Empty(t, rec.successes)
	assert.Empty(t, rec.failures)
}

func TestBridge_ScriptFailureIsSynchronous(t *testing.T) {
	scripts := &fakeScripts{err: errors.New("dns failure")}
	b, guard := newTestBridge(t, infrapayment.NewStubGateway(), scripts)
	rec := &recorder{}

	_, err := b.Open(context.Background(), testPurchase(t), rec.onSuccess, rec.onFailure)
	assert.ErrorIs(t, err, payment.ErrWidgetUnavailable)
	assert.Empty(t, rec.failures)
	assert.Equal(t, 0, guard.Size())

	scripts.err = nil
	_, err = b.Open(context.Background(), testPurchase(t), rec.onSuccess, rec.onFailure)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), scripts.calls.Load())
}

func TestBridge_GatewayFailureReleasesGuard(t *testing.T) {
	b, guard := newTestBridge(t, failingGateway{}, &fakeScripts{})
	rec := &recorder{}

	_, err := b.Open(context.Background(), testPurchase(t), rec.onSuccess, rec.onFailure)
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	assert.Equal(t, 0, guard.Size())
}

func TestBridge_Succeed(t *testing.T) {
	b, _ := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
	rec := &recorder{}
	ctx := context.Background()

	opts, err := b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	require.NoError(t, err)

	outcome, err := b.Succeed(ctx, opts.OrderID, payment.Confirmation{
		OrderID:   opts.OrderID,
		PaymentID: "pay_1",
		Signature: payment.Sign(opts.OrderID, "pay_1", infrapayment.StubGatewaySecret),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, outcome.Status)
	assert.Equal(t, []string{"pay_1"}, rec.successes)

	t.Run("settles at most once", func(t *testing.T) {
		_, err := b.Succeed(ctx, opts.OrderID, payment.Confirmation{})
		assert.ErrorIs(t, err, payment.ErrCheckoutNotFound)
		_, err = b.Fail(ctx, opts.OrderID, payment.FailureDetail{})
		assert.ErrorIs(t, err, payment.ErrCheckoutNotFound)
		assert.Len(t, rec.successes, 1)
	})
}

func TestBridge_SignatureMismatch(t *testing.T) {
	tests := []struct {
		name string
		conf func(orderID string) payment.Confirmation
	}{
		{"wrong secret", func(orderID string) payment.Confirmation {
			return payment.Confirmation{OrderID: orderID, PaymentID: "pay_1", Signature: payment.Sign(orderID, "pay_1", "other")}
		}},
		{"other order", func(orderID string) payment.Confirmation {
			return payment.Confirmation{OrderID: "order_x", PaymentID: "pay_1", Signature: payment.Sign("order_x", "pay_1", infrapayment.StubGatewaySecret)}
		}},
		{"missing signature", func(orderID string) payment.Confirmation {
			return payment.Confirmation{OrderID: orderID, PaymentID: "pay_1"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
			rec := &recorder{}
			ctx := context.Background()

			opts, err := b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
			require.NoError(t, err)

			outcome, err := b.Succeed(ctx, opts.OrderID, tt.conf(opts.OrderID))
			require.NoError(t, err)
			assert.Equal(t, OutcomeFailed, outcome.Status)
			assert.Empty(t, rec.successes)
			require.Len(t, rec.failures, 1)
			assert.Equal(t, FailureSignatureMismatch, rec.failures[0].Code)

			// a forged callback does not close the checkout
			assert.True(t, b.Pending(opts.OrderID))
			outcome, err = b.Succeed(ctx, opts.OrderID, payment.Confirmation{
				OrderID:   opts.OrderID,
				PaymentID: "pay_1",
				Signature: payment.Sign(opts.OrderID, "pay_1", infrapayment.StubGatewaySecret),
			})
			require.NoError(t, err)
			assert.Equal(t, OutcomeSucceeded, outcome.Status)
			assert.Equal(t, []string{"pay_1"}, rec.successes)
			assert.False(t, b.Pending(opts.OrderID))
		})
	}
}

func TestBridge_Fail(t *testing.T) {
	b, guard := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
	rec := &recorder{}
	ctx := context.Background()

	opts, err := b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	require.NoError(t, err)

	outcome, err := b.Fail(ctx, opts.OrderID, payment.FailureDetail{
		Code:        "BAD_REQUEST_ERROR",
		Description: "Payment failed due to insufficient funds",
		Reason:      "payment_failed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Payment failed due to insufficient funds", outcome.Message)
	assert.Equal(t, 0, guard.Size())
	assert.False(t, b.Pending(opts.OrderID))
}

func TestBridge_ExpiresAbandonedCheckouts(t *testing.T) {
	b, _ := newTestBridge(t, infrapayment.NewStubGateway(), &fakeScripts{})
	rec := &recorder{}
	ctx := context.Background()

	opts, err := b.Open(ctx, testPurchase(t), rec.onSuccess, rec.onFailure)
	require.NoError(t, err)

	opened := b.now()
	b.now = func() time.Time { return opened.Add(time.Hour) }
	b.expire()
	assert.False(t, b.Pending(opts.OrderID))
}

func TestReceipt(t *testing.T) {
	assert.Equal(t, "receipt_1700000000000", Receipt(time.UnixMilli(1700000000000)))
}
