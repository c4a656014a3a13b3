package payment

import (
	"context"
	"errors"
)

var (
	ErrInvalidAmount        = errors.New("payment: invalid payment amount")
	ErrGatewayNotConfigured = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable   = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed = errors.New("payment: gateway request failed")
	ErrInvalidSignature     = errors.New("payment: invalid payment signature")
	ErrWidgetUnavailable    = errors.New("payment: checkout widget could not be loaded")
	ErrCheckoutInProgress   = errors.New("payment: checkout already in progress")
	ErrCheckoutNotFound     = errors.New("payment: checkout not found or already settled")
	ErrPaymentMismatch      = errors.New("payment: confirmation does not match the purchase")
)

// DefaultCurrency is used when a request names none
const DefaultCurrency = "INR"

// CreateOrderRequest asks the gateway for a new order. Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Validate validates the create order request
func (r *CreateOrderRequest) Validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// GatewayOrder is the order object returned by the gateway
type GatewayOrder struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes"`
	CreatedAt  int64             `json:"created_at"`
}

// Gateway creates orders on the hosted payment gateway
type Gateway interface {
	// CreateOrder registers an order the checkout widget can collect payment for
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*GatewayOrder, error)
	// KeyID is the public key the widget is configured with
	KeyID() string
}

// Confirmation is the payload the widget hands to its success handler
type Confirmation struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Complete reports whether every field is present
func (c Confirmation) Complete() bool {
	return c.OrderID != "" && c.PaymentID != "" && c.Signature != ""
}

// FailureDetail is the structured error the widget emits on payment.failed
type FailureDetail struct {
	Code        string         `json:"code"`
	Description string         `json:"description"`
	Source      string         `json:"source,omitempty"`
	Step        string         `json:"step,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Error implements error so a failure can travel through error returns
func (f FailureDetail) Error() string {
	if f.Description != "" {
		return f.Description
	}
	if f.Code != "" {
		return f.Code
	}
	return "Payment failed"
}
