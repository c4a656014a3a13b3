package payment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tallypro/storefront/internal/domain/payment"
)

var _ payment.Gateway = (*StubGateway)(nil)

const (
	// StubGatewayKeyID is the widget key reported by the stub gateway
	StubGatewayKeyID = "rzp_test_stub"
	// StubGatewaySecret signs payments settled against the stub gateway
	StubGatewaySecret = "rzp_test_stub_secret"
)

// StubGateway returns deterministic order_<n> objects without network
// access. It backs local development when no keys are configured.
type StubGateway struct {
	seq atomic.Int64
	now func() time.Time
}

// NewStubGateway creates a stub gateway
func NewStubGateway() *StubGateway {
	return &StubGateway{now: time.Now}
}

// KeyID returns a fixed test key
func (g *StubGateway) KeyID() string {
	return StubGatewayKeyID
}

// Secret returns the fixed signing secret
func (g *StubGateway) Secret() string {
	return StubGatewaySecret
}

// CreateOrder echoes the request as a created order
func (g *StubGateway) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = payment.DefaultCurrency
	}
	notes := req.Notes
	if notes == nil {
		notes = map[string]string{}
	}

	return &payment.GatewayOrder{
		ID:        fmt.Sprintf("order_%d", g.seq.Add(1)),
		Entity:    "order",
		Amount:    req.Amount,
		AmountDue: req.Amount,
		Currency:  currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     notes,
		CreatedAt: g.now().Unix(),
	}, nil
}
