package cloud

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

// CreateOrder records the order, then grants the entitlement in a second write
func (s *Store) CreateOrder(ctx context.Context, userID string, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error) {
	if product == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a product")
	}
	if err := s.paymentUnused(ctx, details.PaymentID); err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, shared.ErrNotFound
	}

	order, err := s.recordOrder(ctx, user, product, details)
	if err != nil {
		return nil, err
	}
	if _, err := s.GrantEntitlement(ctx, userID, product.ID); err != nil {
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

// CreateGuestOrder finds or creates a credential-less profile for email,
// records the order and grants the product
func (s *Store) CreateGuestOrder(ctx context.Context, email string, product *catalog.Product, details sales.PurchaseDetails) (*identity.User, error) {
	if product == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a product")
	}
	if err := s.paymentUnused(ctx, details.PaymentID); err != nil {
		return nil, err
	}
	user, err := s.findOrCreateGuest(ctx, email, details)
	if err != nil {
		return nil, err
	}

	order, err := s.recordOrder(ctx, user, product, details)
	if err != nil {
		return nil, err
	}

	granted := false
	err = s.mutateProfile(ctx, user.ID, func(u *identity.User) error {
		granted = u.Grant(product.ID)
		user = u.Clone()
		return nil
	})
	if err != nil {
		s.logger.Error("Entitlement write failed after guest order was recorded",
			zap.String("order_id", order.ID),
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		if granted {
			user.PurchasedProducts = withoutProduct(user.PurchasedProducts, product.ID)
		}
		return user, store.EntitlementPending(err)
	}
	return user, nil
}

func (s *Store) findOrCreateGuest(ctx context.Context, email string, details sales.PurchaseDetails) (*identity.User, error) {
	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil || existing != nil {
		return existing, err
	}

	normalized := identity.NormalizeEmail(email)
	guest, err := identity.NewCustomer(newID(), identity.LocalPart(normalized), normalized)
	if err != nil {
		return nil, err
	}
	guest.JoinedAt = s.now()
	guest.PhoneNumber = details.PhoneNumber
	guest.TallySerial = details.TallySerial

	model := ProfileModelFromDomain(guest)
	model.UpdatedAt = guest.JoinedAt
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			// A concurrent purchase created the profile first.
			return s.GetUserByEmail(ctx, email)
		}
		return nil, err
	}
	s.logger.Info("Guest profile created", zap.String("user_id", guest.ID))
	return guest, nil
}

func (s *Store) recordOrder(ctx context.Context, user *identity.User, product *catalog.Product, details sales.PurchaseDetails) (*sales.Order, error) {
	order, err := sales.NewOrder(newID(), user, product, details)
	if err != nil {
		return nil, err
	}
	order.Date = s.now()
	if err := s.db.WithContext(ctx).Create(OrderModelFromDomain(order)).Error; err != nil {
		if details.PaymentID != "" && isUniqueViolation(err) {
			return nil, sales.ErrPaymentAlreadyRecorded
		}
		return nil, err
	}
	return order, nil
}

// paymentUnused rejects a payment id some order already carries. The
// unique index on orders.payment_id settles concurrent writers.
func (s *Store) paymentUnused(ctx context.Context, paymentID string) error {
	if paymentID == "" {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&OrderModel{}).Where("payment_id = ?", paymentID).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return sales.ErrPaymentAlreadyRecorded
	}
	return nil
}

func withoutProduct(ids []string, productID string) []string {
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
	return s.findOrders(ctx, "")
}

// GetOrdersByUser returns the orders of one account, newest first
func (s *Store) GetOrdersByUser(ctx context.Context, userID string) ([]sales.Order, error) {
	return s.findOrders(ctx, userID)
}

func (s *Store) findOrders(ctx context.Context, userID string) ([]sales.Order, error) {
	query := s.db.WithContext(ctx).Order("date DESC")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var rows []OrderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	orders := make([]sales.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *rows[i].ToDomain())
	}
	return orders, nil
}

// UpdateOrderStatus applies a lifecycle transition
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status sales.OrderStatus) error {
	var row OrderModel
	if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&row).Error; err != nil {
		if isNotFound(err) {
			return shared.ErrNotFound
		}
		return err
	}
	order := row.ToDomain()
	previous := order.Status
	if err := order.TransitionTo(status); err != nil {
		return err
	}
	if order.Status == previous {
		return nil
	}
	result := s.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND status = ?", orderID, string(previous)).
		Update("status", string(order.Status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("INVALID_STATE", "Order status changed concurrently")
	}
	return nil
}

// GetRevenue sums successful orders in the database
func (s *Store) GetRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	row := s.db.WithContext(ctx).Model(&OrderModel{}).
		Select("SUM(amount)").
		Where("status = ?", string(sales.OrderStatusSuccess)).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
