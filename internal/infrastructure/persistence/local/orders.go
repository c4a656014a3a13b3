package local

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
)

// CreateOrder records the order, then grants the entitlement. A failed
// grant leaves the order in place and is reported as entitlement pending.
func (s *Store) CreateOrder(ctx context.Context, userID string, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.paymentUnused(ctx, details.PaymentID); err != nil {
		return nil, err
	}
	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}
	i := findUserByID(records, userID)
	if i < 0 {
		return nil, shared.ErrNotFound
	}

	order, err := s.recordOrder(ctx, &records[i].User, product, details)
	if err != nil {
		return nil, err
	}
	if _, err := s.grantLocked(ctx, records, i, product.ID); err != nil {
		s.logger.Error("Entitlement write failed after order was recorded",
			zap.String("order_id", order.ID),
			zap.String("user_id", userID),
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		return order, store.EntitlementPending(err)
	}
	return order, nil
}

// CreateGuestOrder records a purchase for email, creating the account when needed
func (s *Store) CreateGuestOrder(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*identity.User, error) {
	account, err := s.CreateGuestOrderWithCredentials(ctx, email, product, details)
	if account == nil {
		return nil, err
	}
	return account.User, err
}

// CreateGuestOrderWithCredentials is CreateGuestOrder that also returns the
// password generated for a new account. Password is empty for existing accounts.
func (s *Store) CreateGuestOrderWithCredentials(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*store.GuestAccount, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if product == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a product")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.paymentUnused(ctx, details.PaymentID); err != nil {
		return nil, err
	}
	records, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return nil, err
	}

	account := &store.GuestAccount{}
	i := findUserByEmail(records, email)
	if i < 0 {
		guest, password, err := s.newGuest(email, details)
		if err != nil {
			return nil, err
		}
		records = append(records, *guest)
		if err := save(ctx, s, keyUsers, records); err != nil {
			return nil, err
		}
		i = len(records) - 1
		account.Password = password
		s.logger.Info("Guest account created", zap.String("user_id", guest.ID))
	}

	order, err := s.recordOrder(ctx, &records[i].User, product, details)
	if err != nil {
		return nil, err
	}
	if _, err := s.grantLocked(ctx, records, i, product.ID); err != nil {
		s.logger.Error("Entitlement write failed after guest order was recorded",
			zap.String("order_id", order.ID),
			zap.String("user_id", records[i].ID),
			zap.Error(err),
		)
		// The in-memory grant was not persisted.
		ungranted := records[i].User.Clone()
		ungranted.PurchasedProducts = removeProduct(ungranted.PurchasedProducts, product.ID)
		account.User = ungranted
		return account, store.EntitlementPending(err)
	}
	account.User = records[i].User.Clone()
	return account, nil
}

func (s *Store) newGuest(email string, details sales.PurchaseDetails) (*userRecord, string, error) {
	normalized := identity.NormalizeEmail(email)
	user, err := identity.NewCustomer(s.newID("guest"), identity.LocalPart(normalized), normalized)
	if err != nil {
		return nil, "", err
	}
	user.JoinedAt = s.now()
	user.PhoneNumber = details.PhoneNumber
	user.TallySerial = details.TallySerial

	password, err := identity.GenerateGuestPassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := identity.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, "", err
	}
	return &userRecord{User: *user, PasswordHash: hash}, password, nil
}

// recordOrder prepends a new order. Callers hold s.mu.
func (s *Store) recordOrder(ctx context.Context, user *identity.User, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error) {
	order, err := sales.NewOrder(s.newID("ord"), user, product, details)
	if err != nil {
		return nil, err
	}
	order.Date = s.now()

	orders, err := load[sales.Order](ctx, s, keyOrders)
	if err != nil {
		return nil, err
	}
	if err := save(ctx, s, keyOrders, prepend(orders, *order)); err != nil {
		return nil, err
	}
	return order, nil
}

// paymentUnused rejects a payment id some order already carries. Callers hold s.mu.
func (s *Store) paymentUnused(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return nil
	}
	orders, err := load[sales.Order](ctx, s, keyOrders)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.PaymentID == paymentID {
			return sales.ErrPaymentAlreadyRecorded
		}
	}
	return nil
}

// grantLocked adds productID to records[i] and persists. Callers hold s.mu.
func (s *Store) grantLocked(ctx context.Context, records []userRecord, i int, productID string) (bool, error) {
	if !records[i].Grant(productID) {
		return false, nil
	}
	if err := save(ctx, s, keyUsers, records); err != nil {
		return true, err
	}
	return true, nil
}

func removeProduct(ids []string, productID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != productID {
			out = append(out, id)
		}
	}
	return out
}

// GetOrders returns the ledger, newest first
func (s *Store) GetOrders(ctx context.Context) ([]sales.Order, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return load[sales.Order](ctx, s, keyOrders)
}

// GetOrdersByUser returns the orders of one account, newest first
func (s *Store) GetOrdersByUser(ctx context.Context, userID string) ([]sales.Order, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders, err := load[sales.Order](ctx, s, keyOrders)
	if err != nil {
		return nil, err
	}
	out := make([]sales.Order, 0)
	for _, o := range orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

// UpdateOrderStatus applies a lifecycle transition
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status sales.OrderStatus) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := load[sales.Order](ctx, s, keyOrders)
	if err != nil {
		return err
	}
	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		if err := orders[i].TransitionTo(status); err != nil {
			return err
		}
		return save(ctx, s, keyOrders, orders)
	}
	return shared.ErrNotFound
}

// GetRevenue sums successful orders
func (s *Store) GetRevenue(ctx context.Context) (decimal.Decimal, error) {
	orders, err := s.GetOrders(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return sales.Revenue(orders), nil
}
