// Package checkout drives the hosted payment widget: it opens a gateway
// order for a purchase and settles the browser callbacks exactly once.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/infrastructure/cache"
	infrapayment "github.com/tallypro/storefront/internal/infrastructure/payment"
	"github.com/tallypro/storefront/internal/infrastructure/telemetry"
)

// FailureSignatureMismatch is the failure code reported when a success
// callback carries a signature that does not verify
const FailureSignatureMismatch = "SIGNATURE_MISMATCH"

// ScriptSource loads the widget script
type ScriptSource interface {
	Load(ctx context.Context) (*infrapayment.Script, error)
}

// Config holds the widget presentation and checkout lifetimes
type Config struct {
	MerchantName string
	ThemeColor   string
	Currency     string
	NotesAddress string
	// KeySecret verifies payment signatures
	KeySecret string
	// InFlightTTL bounds how long an unsettled checkout blocks a retry
	InFlightTTL time.Duration
	// PendingLifetime drops unsettled checkouts the browser never reported on
	PendingLifetime time.Duration
}

// Purchase names what is being bought and by whom. A guest purchase has a
// User without an ID.
type Purchase struct {
	Product *catalog.Product
	User    *identity.User
}

func (p Purchase) guardKey() string {
	who := p.User.ID
	if who == "" {
		who = identity.NormalizeEmail(p.User.Email)
	}
	return "checkout:" + who + ":" + p.Product.ID
}

// OutcomeStatus classifies a settled checkout
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "success"
	OutcomeFailed    OutcomeStatus = "failed"
	// OutcomePartial means the payment was captured but recording it failed
	OutcomePartial OutcomeStatus = "partial"
)

// Outcome is the result of a settled checkout as reported to the browser
type Outcome struct {
	Status        OutcomeStatus          `json:"status"`
	Message       string                 `json:"message"`
	PaymentID     string                 `json:"paymentId,omitempty"`
	Order         *sales.Order           `json:"order,omitempty"`
	User          *identity.User         `json:"user,omitempty"`
	GuestPassword string                 `json:"guestPassword,omitempty"`
	Failure       *payment.FailureDetail `json:"failure,omitempty"`
}

// SuccessFunc runs once a payment is captured and its signature verified
type SuccessFunc func(ctx context.Context, paymentID string) *Outcome

// FailureFunc runs when the widget reports a failure or the signature is wrong
type FailureFunc func(ctx context.Context, detail payment.FailureDetail) *Outcome

type pending struct {
	guardKey  string
	purchase  Purchase
	onSuccess SuccessFunc
	onFailure FailureFunc
	openedAt  time.Time
}

// Bridge opens widget checkouts and settles their callbacks
type Bridge struct {
	gateway payment.Gateway
	scripts ScriptSource
	guard   cache.Guard
	config  Config
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]*pending
}

// NewBridge creates a checkout bridge
func NewBridge(gateway payment.Gateway, scripts ScriptSource, guard cache.Guard, cfg Config, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = payment.DefaultCurrency
	}
	if cfg.InFlightTTL <= 0 {
		cfg.InFlightTTL = 15 * time.Minute
	}
	if cfg.PendingLifetime <= 0 {
		cfg.PendingLifetime = 30 * time.Minute
	}
	return &Bridge{
		gateway: gateway,
		scripts: scripts,
		guard:   guard,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]*pending),
	}
}

// Open starts a checkout and returns the options the browser opens the
// widget with. Script and gateway failures are returned here; the
// callbacks only run for a checkout that was opened.
func (b *Bridge) Open(ctx context.Context, p Purchase, onSuccess SuccessFunc, onFailure FailureFunc) (opts *WidgetOptions, err error) {
	if p.Product == nil || p.User == nil {
		return nil, errors.New("checkout requires a product and a user")
	}
	ctx, span := telemetry.StartSpan(ctx, "checkout.open",
		attribute.String("product.id", p.Product.ID),
		attribute.String("user.id", p.User.ID),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	b.expire()

	key := p.guardKey()
	acquired, err := b.guard.Acquire(ctx, key, b.config.InFlightTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout guard: %w", err)
	}
	if !acquired {
		return nil, payment.ErrCheckoutInProgress
	}
	defer func() {
		if err != nil {
			b.release(ctx, key)
		}
	}()

	if _, err := b.scripts.Load(ctx); err != nil {
		if !errors.Is(err, payment.ErrWidgetUnavailable) {
			err = fmt.Errorf("%w: %v", payment.ErrWidgetUnavailable, err)
		}
		return nil, err
	}

	order, err := b.gateway.CreateOrder(ctx, &payment.CreateOrderRequest{
		Amount:   p.Product.MinorUnits(),
		Currency: b.config.Currency,
		Receipt:  Receipt(b.now()),
		Notes:    map[string]string{"product_id": p.Product.ID},
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.pending[order.ID] = &pending{
		guardKey:  key,
		purchase:  p,
		onSuccess: onSuccess,
		onFailure: onFailure,
		openedAt:  b.now(),
	}
	b.mu.Unlock()

	b.logger.Info("Checkout opened",
		zap.String("order_id", order.ID),
		zap.String("product_id", p.Product.ID),
		zap.String("user_id", p.User.ID),
		zap.Int64("amount", order.Amount),
	)
	return b.widgetOptions(order, p), nil
}

// Succeed settles a checkout with the widget's success payload. A
// signature that does not verify runs the failure callback instead and
// leaves the checkout open for the genuine callback.
func (b *Bridge) Succeed(ctx context.Context, orderID string, c payment.Confirmation) (*Outcome, error) {
	pc, ok := b.peek(orderID)
	if !ok {
		return nil, payment.ErrCheckoutNotFound
	}
	if c.OrderID == "" {
		c.OrderID = orderID
	}
	if c.OrderID != orderID || payment.VerifySignature(c, b.config.KeySecret) != nil {
		b.logger.Warn("Payment signature mismatch",
			zap.String("order_id", orderID),
			zap.String("payment_id", c.PaymentID),
		)
		return pc.onFailure(ctx, payment.FailureDetail{
			Code:        FailureSignatureMismatch,
			Description: "Payment could not be verified",
		}), nil
	}
	pc, err := b.take(ctx, orderID)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Payment captured",
		zap.String("order_id", orderID),
		zap.String("payment_id", c.PaymentID),
	)
	return pc.onSuccess(ctx, c.PaymentID), nil
}

// Fail settles a checkout with the widget's payment.failed error
func (b *Bridge) Fail(ctx context.Context, orderID string, detail payment.FailureDetail) (*Outcome, error) {
	pc, err := b.take(ctx, orderID)
	if err != nil {
		return nil, err
	}
	b.logger.Info("Payment failed",
		zap.String("order_id", orderID),
		zap.String("code", detail.Code),
		zap.String("reason", detail.Reason),
	)
	return pc.onFailure(ctx, detail), nil
}

// Dismiss settles a checkout the user closed without paying. No callback runs.
func (b *Bridge) Dismiss(ctx context.Context, orderID string) error {
	_, err := b.take(ctx, orderID)
	return err
}

// Pending reports whether orderID is an open checkout
func (b *Bridge) Pending(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[orderID]
	return ok
}

func (b *Bridge) peek(orderID string) (*pending, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pc, ok := b.pending[orderID]
	return pc, ok
}

func (b *Bridge) take(ctx context.Context, orderID string) (*pending, error) {
	b.mu.Lock()
	pc, ok := b.pending[orderID]
	delete(b.pending, orderID)
	b.mu.Unlock()
	if !ok {
		return nil, payment.ErrCheckoutNotFound
	}
	b.release(ctx, pc.guardKey)
	return pc, nil
}

func (b *Bridge) release(ctx context.Context, key string) {
	if err := b.guard.Release(context.WithoutCancel(ctx), key); err != nil {
		b.logger.Warn("Failed to release checkout guard", zap.String("key", key), zap.Error(err))
	}
}

// expire drops checkouts the browser never settled
func (b *Bridge) expire() {
	cutoff := b.now().Add(-b.config.PendingLifetime)
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, pc := range b.pending {
		if pc.openedAt.Before(cutoff) {
			delete(b.pending, id)
			b.logger.Debug("Checkout expired", zap.String("order_id", id))
		}
	}
}

// Receipt builds the gateway receipt for an order opened at t
func Receipt(t time.Time) string {
	return fmt.Sprintf("receipt_%d", t.UnixMilli())
}
