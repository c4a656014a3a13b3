package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/domain/payment"
)

func TestRazorpayConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *RazorpayConfig
		wantErr error
	}{
		{"valid config", &RazorpayConfig{KeyID: "rzp_test_1", KeySecret: "secret"}, nil},
		{"missing key id", &RazorpayConfig{KeySecret: "secret"}, ErrRazorpayMissingKeyID},
		{"missing key secret", &RazorpayConfig{KeyID: "rzp_test_1"}, ErrRazorpayMissingKeySecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *RazorpayAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewRazorpayAdapter(&RazorpayConfig{KeyID: "rzp_test_1", KeySecret: "shh", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	return a
}

func TestRazorpayAdapter_CreateOrder(t *testing.T) {
	var got razorpayOrderRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_1", user)
		assert.Equal(t, "shh", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc","entity":"order","amount":499900,"amount_paid":0,"amount_due":499900,"currency":"INR","receipt":"receipt_1","status":"created","attempts":0,"notes":{},"created_at":1700000000}`))
	})

	order, err := a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 499900, Receipt: "receipt_1"})
	require.NoError(t, err)

	assert.Equal(t, int64(499900), got.Amount)
	assert.Equal(t, "INR", got.Currency)
	assert.Equal(t, "receipt_1", got.Receipt)

	assert.Equal(t, "order_Abc", order.ID)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, int64(499900), order.AmountDue)
	assert.Equal(t, "rzp_test_1", a.KeyID())
}

func TestRazorpayAdapter_CreateOrderErrors(t *testing.T) {
	t.Run("bad request maps to request failed", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`))
		})
		_, err := a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 1})
		require.ErrorIs(t, err, payment.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
		assert.Contains(t, err.Error(), "atleast INR 1.00")
	})

	t.Run("auth failure without body", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 100})
		require.ErrorIs(t, err, payment.ErrGatewayRequestFailed)
		assert.Contains(t, err.Error(), "HTTP 401")
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 100})
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})

	t.Run("unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		a, err := NewRazorpayAdapter(&RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: srv.URL}, nil)
		require.NoError(t, err)
		_, err = a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 100})
		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})

	t.Run("invalid amount never reaches the API", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		})
		_, err := a.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 0})
		assert.ErrorIs(t, err, payment.ErrInvalidAmount)
	})
}

func TestStubGateway(t *testing.T) {
	g := NewStubGateway()

	first, err := g.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 100, Receipt: "r1"})
	require.NoError(t, err)
	second, err := g.CreateOrder(context.Background(), &payment.CreateOrderRequest{Amount: 200, Currency: "USD"})
	require.NoError(t, err)

	assert.Equal(t, "order_1", first.ID)
	assert.Equal(t, "INR", first.Currency)
	assert.Equal(t, "r1", first.Receipt)
	assert.Equal(t, "order_2", second.ID)
	assert.Equal(t, "USD", second.Currency)
	assert.Equal(t, StubGatewayKeyID, g.KeyID())

	_, err = g.CreateOrder(context.Background(), &payment.CreateOrderRequest{})
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)
}
