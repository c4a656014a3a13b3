// Package admin holds the back-office use cases.
package admin

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/domain/identity"
	domainsales "github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
)

var ErrSelfDeactivation = shared.NewDomainError("SELF_DEACTIVATION", "You cannot deactivate your own account")

// Reconciler grants entitlements missing for successful orders
type Reconciler interface {
	Reconcile(ctx context.Context) (sales.ReconcileReport, error)
}

// Revenue is the ledger total with a display string
type Revenue struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Formatted string          `json:"formatted"`
	Orders    int             `json:"orders"`
}

// Service manages users, orders and the revenue summary
type Service struct {
	store      store.Store
	blacklist  auth.TokenBlacklist
	reconciler Reconciler
	tokenTTL   time.Duration
	unit       currency.Unit
	printer    *message.Printer
	logger     *zap.Logger
}

// NewService creates an admin service. tokenTTL bounds how long a user
// invalidation is remembered and must cover the access token lifetime.
func NewService(s store.Store, blacklist auth.TokenBlacklist, reconciler Reconciler, tokenTTL time.Duration, currencyCode string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		unit = currency.INR
	}
	return &Service{
		store:      s,
		blacklist:  blacklist,
		reconciler: reconciler,
		tokenTTL:   tokenTTL,
		unit:       unit,
		printer:    message.NewPrinter(language.English),
		logger:     logger,
	}
}

// Users lists every account
func (s *Service) Users(ctx context.Context) ([]identity.User, error) {
	return s.store.GetUsers(ctx)
}

// AddUser creates an account directly
func (s *Service) AddUser(ctx context.Context, in store.NewUserInput) (*identity.User, error) {
	user, err := s.store.AddUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User added by administrator", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// SetUserStatus activates or deactivates userID. Deactivation revokes
// every token the user holds.
func (s *Service) SetUserStatus(ctx context.Context, actorID, userID string, status identity.UserStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown user status: "+string(status))
	}
	if status == identity.UserStatusInactive && actorID == userID {
		return ErrSelfDeactivation
	}
	if err := s.store.UpdateUserStatus(ctx, userID, status); err != nil {
		return err
	}
	if status == identity.UserStatusInactive && s.blacklist != nil {
		if err := s.blacklist.InvalidateUser(ctx, userID, s.tokenTTL); err != nil {
			return err
		}
	}
	s.logger.Info("User status changed",
		zap.String("actor_id", actorID),
		zap.String("user_id", userID),
		zap.String("status", string(status)),
	)
	return nil
}

// Orders lists the whole ledger, newest first
func (s *Service) Orders(ctx context.Context) ([]domainsales.Order, error) {
	return s.store.GetOrders(ctx)
}

// SetOrderStatus records a refund or any other status change
func (s *Service) SetOrderStatus(ctx context.Context, orderID string, status domainsales.OrderStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(status))
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	s.logger.Info("Order status changed", zap.String("order_id", orderID), zap.String("status", string(status)))
	return nil
}

// Revenue sums successful orders
func (s *Service) Revenue(ctx context.Context) (*Revenue, error) {
	amount, err := s.store.GetRevenue(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	count := 0
	for _, o := range orders {
		if o.Status == domainsales.OrderStatusSuccess {
			count++
		}
	}
	return &Revenue{
		Amount:    amount,
		Currency:  s.unit.String(),
		Formatted: s.FormatAmount(amount),
		Orders:    count,
	}, nil
}

// FormatAmount renders amount with grouping and two decimals, prefixed by the currency code
func (s *Service) FormatAmount(amount decimal.Decimal) string {
	f, _ := amount.Round(2).Float64()
	return s.printer.Sprintf("%s %v", s.unit, number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Reconcile grants entitlements missing for successful orders now
func (s *Service) Reconcile(ctx context.Context) (sales.ReconcileReport, error) {
	if s.reconciler == nil {
		return sales.ReconcileReport{}, shared.NewDomainError("RECONCILE_UNAVAILABLE", "Reconciliation is not configured")
	}
	return s.reconciler.Reconcile(ctx)
}
