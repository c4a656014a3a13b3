package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/infrastructure/cache"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
)

// DefaultOrderLedgerTTL bounds how long a created gateway order stays redeemable
const DefaultOrderLedgerTTL = 24 * time.Hour

const (
	ledgerKeyPrefix   = "tallypro_gateway_order:"
	ledgerClaimPrefix = "gateway_order_claim:"
)

// OrderLedger is a Gateway that remembers every order it creates so a
// payment confirmation can be traced back to one of them. Each recorded
// order is redeemed at most once.
type OrderLedger struct {
	payment.Gateway
	medium kv.Store
	claims cache.Guard
	ttl    time.Duration
	logger *zap.Logger
}

// NewOrderLedger wraps gw. Orders are kept in medium; claims are
// serialized through guard so concurrent redeemers see one winner.
func NewOrderLedger(gw payment.Gateway, medium kv.Store, guard cache.Guard, ttl time.Duration, logger *zap.Logger) *OrderLedger {
	if ttl <= 0 {
		ttl = DefaultOrderLedgerTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderLedger{Gateway: gw, medium: medium, claims: guard, ttl: ttl, logger: logger}
}

// CreateOrder creates the order on the gateway and records it
func (l *OrderLedger) CreateOrder(ctx context.Context, req *payment.CreateOrderRequest) (*payment.GatewayOrder, error) {
	order, err := l.Gateway.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode gateway order: %w", err)
	}
	if err := l.medium.Set(ctx, ledgerKeyPrefix+order.ID, raw, l.ttl); err != nil {
		return nil, fmt.Errorf("record gateway order: %w", err)
	}
	return order, nil
}

// Claim redeems orderID when accept approves the recorded order. An order
// this ledger never created, or one already redeemed, is
// payment.ErrCheckoutNotFound. A rejected order stays redeemable.
func (l *OrderLedger) Claim(ctx context.Context, orderID string, accept func(*payment.GatewayOrder) error) (*payment.GatewayOrder, error) {
	if orderID == "" {
		return nil, payment.ErrCheckoutNotFound
	}
	lock := ledgerClaimPrefix + orderID
	held, err := l.claims.Acquire(ctx, lock, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("claim gateway order: %w", err)
	}
	if !held {
		return nil, payment.ErrCheckoutNotFound
	}

	order, err := l.claim(ctx, orderID, accept)
	if err != nil {
		if rerr := l.claims.Release(context.WithoutCancel(ctx), lock); rerr != nil {
			l.logger.Warn("Failed to release gateway order claim", zap.String("order_id", orderID), zap.Error(rerr))
		}
		return nil, err
	}
	l.logger.Info("Gateway order redeemed", zap.String("order_id", orderID), zap.Int64("amount", order.Amount))
	return order, nil
}

func (l *OrderLedger) claim(ctx context.Context, orderID string, accept func(*payment.GatewayOrder) error) (*payment.GatewayOrder, error) {
	raw, err := l.medium.Get(ctx, ledgerKeyPrefix+orderID)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, payment.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read gateway order: %w", err)
	}
	var order payment.GatewayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	if accept != nil {
		if err := accept(&order); err != nil {
			return nil, err
		}
	}
	if err := l.medium.Delete(ctx, ledgerKeyPrefix+orderID); err != nil {
		return nil, fmt.Errorf("redeem gateway order: %w", err)
	}
	return &order, nil
}
