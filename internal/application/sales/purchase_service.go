// Package sales runs purchases through the checkout bridge and keeps the
// order ledger and entitlements consistent.
package sales

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/application/checkout"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

var (
	ErrAlreadyOwned       = shared.NewDomainError("ALREADY_OWNED", "You already own this module")
	ErrProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "This module is not available for purchase")
)

const (
	// PartialOutcomeMessage is reported when a captured payment could not be recorded
	PartialOutcomeMessage = "Payment succeeded but order recording failed. Contact support."
	// PendingEntitlementMessage is reported when the order was recorded but access is still being granted
	PendingEntitlementMessage = "Payment succeeded. Your order is recorded and access will be granted shortly."
)

// Opener opens widget checkouts
type Opener interface {
	Open(ctx context.Context, p checkout.Purchase, onSuccess checkout.SuccessFunc, onFailure checkout.FailureFunc) (*checkout.WidgetOptions, error)
}

// OrderClaimer redeems, at most once, a gateway order this service created
type OrderClaimer interface {
	Claim(ctx context.Context, orderID string, accept func(*payment.GatewayOrder) error) (*payment.GatewayOrder, error)
}

// PurchaseService starts checkouts for signed-in customers and guests and
// records the purchase when the payment is captured
type PurchaseService struct {
	store    store.Store
	bridge   Opener
	claims   OrderClaimer
	currency string
	logger   *zap.Logger
}

// NewPurchaseService creates a purchase service
func NewPurchaseService(s store.Store, bridge Opener, logger *zap.Logger) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseService{store: s, bridge: bridge, currency: payment.DefaultCurrency, logger: logger}
}

// WithOrderClaims enables GuestPurchase. Confirmations are accepted only
// for gateway orders redeemed through claims in the given currency.
func (s *PurchaseService) WithOrderClaims(claims OrderClaimer, currency string) *PurchaseService {
	s.claims = claims
	if currency != "" {
		s.currency = currency
	}
	return s
}

// BeginCheckout opens the widget for a signed-in user. A module the user
// already owns is rejected before the widget opens.
func (s *PurchaseService) BeginCheckout(ctx context.Context, userID, productID string, details sales.PurchaseDetails) (*checkout.WidgetOptions, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.ErrNotFound
	}
	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}
	if user.Owns(product.ID) {
		return nil, ErrAlreadyOwned
	}

	onSuccess := func(ctx context.Context, paymentID string) *checkout.Outcome {
		d := details
		d.PaymentID = paymentID
		order, err := s.store.CreateOrder(ctx, user.ID, product, d)
		return s.recorded(ctx, paymentID, product, order, nil, "", err)
	}
	return s.bridge.Open(ctx, checkout.Purchase{Product: product, User: user}, onSuccess, s.failed)
}

// BeginGuestCheckout opens the widget for a visitor identified only by
// email. The account is found or created when the payment is captured.
func (s *PurchaseService) BeginGuestCheckout(ctx context.Context, email, productID string, details sales.PurchaseDetails) (*checkout.WidgetOptions, error) {
	email = identity.NormalizeEmail(email)
	if err := identity.ValidateEmail(email); err != nil {
		return nil, err
	}
	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Owns(product.ID) {
		return nil, ErrAlreadyOwned
	}

	buyer := &identity.User{Name: identity.LocalPart(email), Email: email}
	if existing != nil {
		buyer.Name = existing.Name
	}

	onSuccess := func(ctx context.Context, paymentID string) *checkout.Outcome {
		d := details
		d.PaymentID = paymentID
		user, password, err := s.guestOrder(ctx, email, product, d)
		return s.recorded(ctx, paymentID, product, nil, user, password, err)
	}
	return s.bridge.Open(ctx, checkout.Purchase{Product: product, User: buyer}, onSuccess, s.failed)
}

// GuestPurchase records a guest purchase paid outside the bridge. The
// confirmation must name a gateway order this service created for the
// product's amount; that order is redeemed and cannot back a second
// purchase. The generated password is returned when the backend issues one.
func (s *PurchaseService) GuestPurchase(ctx context.Context, email, productID string, c payment.Confirmation, details sales.PurchaseDetails) (*identity.User, string, error) {
	product, err := s.purchasable(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	if s.claims == nil {
		return nil, "", payment.ErrCheckoutNotFound
	}
	_, err = s.claims.Claim(ctx, c.OrderID, func(o *payment.GatewayOrder) error {
		return s.matches(o, product)
	})
	if err != nil {
		s.logger.Warn("Guest purchase confirmation rejected",
			zap.String("order_id", c.OrderID),
			zap.String("payment_id", c.PaymentID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		return nil, "", err
	}
	details.PaymentID = c.PaymentID
	return s.guestOrder(ctx, identity.NormalizeEmail(email), product, details)
}

// matches checks that a gateway order was opened for product
func (s *PurchaseService) matches(o *payment.GatewayOrder, product *catalog.Product) error {
	if o.Amount != product.MinorUnits() || !strings.EqualFold(o.Currency, s.currency) {
		return payment.ErrPaymentMismatch
	}
	if pid := o.Notes["product_id"]; pid != "" && pid != product.ID {
		return payment.ErrPaymentMismatch
	}
	return nil
}

func (s *PurchaseService) guestOrder(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*identity.User, string, error) {
	if issuer, ok := s.store.(store.GuestCredentialIssuer); ok {
		account, err := issuer.CreateGuestOrderWithCredentials(ctx, email, product, details)
		if account == nil {
			return nil, "", err
		}
		return account.User, account.Password, err
	}
	user, err := s.store.CreateGuestOrder(ctx, email, product, details)
	return user, "", err
}

func (s *PurchaseService) purchasable(ctx context.Context, productID string) (*catalog.Product, error) {
	product, err := s.store.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.ErrNotFound
	}
	if !product.Active {
		return nil, ErrProductUnavailable
	}
	return product, nil
}

func (s *PurchaseService) recorded(ctx context.Context, paymentID string, product *catalog.Product, order *sales.Order, user *identity.User, password string, err error) *checkout.Outcome {
	outcome := &checkout.Outcome{
		PaymentID:     paymentID,
		Order:         order,
		User:          user,
		GuestPassword: password,
	}
	switch {
	case err == nil:
		outcome.Status = checkout.OutcomeSucceeded
		outcome.Message = "Payment successful! " + product.Name + " has been added to your account."
	case store.IsEntitlementPending(err):
		s.logger.Warn("Order recorded without entitlement",
			zap.String("payment_id", paymentID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		outcome.Status = checkout.OutcomePartial
		outcome.Message = PendingEntitlementMessage
	default:
		s.logger.Error("Payment captured but order recording failed",
			zap.String("payment_id", paymentID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		outcome.Status = checkout.OutcomePartial
		outcome.Message = PartialOutcomeMessage
	}
	return outcome
}

func (s *PurchaseService) failed(_ context.Context, detail payment.FailureDetail) *checkout.Outcome {
	return &checkout.Outcome{
		Status:  checkout.OutcomeFailed,
		Message: detail.Error(),
		Failure: &detail,
	}
}
