package sales

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/shared"
)

// ErrPaymentAlreadyRecorded is returned when an order already carries the payment id
var ErrPaymentAlreadyRecorded = shared.NewDomainError("PAYMENT_ALREADY_RECORDED", "This payment has already been recorded")

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusSuccess  OrderStatus = "success"
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusRefunded OrderStatus = "refunded"
)

// IsValid reports whether s is a known status
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusSuccess, OrderStatusPending, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can move to target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusSuccess || target == OrderStatusRefunded
	case OrderStatusSuccess:
		return target == OrderStatusRefunded
	}
	return false
}

// PurchaseDetails carries optional contact metadata captured at checkout
type PurchaseDetails struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	TallySerial string `json:"tallySerial,omitempty"`
	PaymentID   string `json:"paymentId,omitempty"`
}

// Order is one payment event. User and product fields are copies taken at
// purchase time so history survives later edits.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	UserName    string          `json:"userName"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Amount      decimal.Decimal `json:"amount"`
	Status      OrderStatus     `json:"status"`
	Date        time.Time       `json:"date"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
	TallySerial string          `json:"tallySerial,omitempty"`
	PaymentID   string          `json:"paymentId,omitempty"`
}

// NewOrder records a successful purchase of product by user
func NewOrder(id string, user *identity.User, product *catalog.Product, details PurchaseDetails) (*Order, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if user == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a user")
	}
	if product == nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order requires a product")
	}
	return &Order{
		ID:          id,
		UserID:      user.ID,
		UserName:    user.Name,
		ProductID:   product.ID,
		ProductName: product.Name,
		Amount:      product.Price,
		Status:      OrderStatusSuccess,
		Date:        time.Now().UTC(),
		PhoneNumber: details.PhoneNumber,
		TallySerial: details.TallySerial,
		PaymentID:   details.PaymentID,
	}, nil
}

// TransitionTo changes the order status. Status is the only mutable field.
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(target))
	}
	if o.Status == target {
		return nil
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", "Cannot move order from "+string(o.Status)+" to "+string(target))
	}
	o.Status = target
	return nil
}

// Revenue sums the amounts of successful orders
func Revenue(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status == OrderStatusSuccess {
			total = total.Add(o.Amount)
		}
	}
	return total
}
