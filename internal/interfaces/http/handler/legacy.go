package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/application/checkout"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

// PaymentAPIHandler serves the two serverless payment endpoints the
// storefront shipped with. Their bodies are not enveloped.
type PaymentAPIHandler struct {
	gateway   payment.Gateway
	keySecret string
	now       func() time.Time
	logger    *zap.Logger
}

// NewPaymentAPIHandler creates a new PaymentAPIHandler
func NewPaymentAPIHandler(gateway payment.Gateway, keySecret string, logger *zap.Logger) *PaymentAPIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentAPIHandler{gateway: gateway, keySecret: keySecret, now: time.Now, logger: logger}
}

// CreateOrderBody is the body of /api/create-order. Amount is in rupees.
type CreateOrderBody struct {
	Amount   decimal.NullDecimal `json:"amount"`
	Currency string              `json:"currency"`
	Receipt  string              `json:"receipt"`
}

// CreateOrder handles /api/create-order
// @ID           createGatewayOrder
// @Summary      Create a gateway order
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreateOrderBody true "Request body"
// @Success      200 {object} payment.GatewayOrder
// @Failure      400 {object} dto.LegacyError
// @Failure      405 {object} dto.LegacyError
// @Failure      500 {object} dto.LegacyError
// @Router       /api/create-order [post]
func (h *PaymentAPIHandler) CreateOrder(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, dto.LegacyError{Error: "Method Not Allowed"})
		return
	}

	var body CreateOrderBody
	if err := c.ShouldBindJSON(&body); err != nil || !body.Amount.Valid || body.Amount.Decimal.IsZero() {
		c.JSON(http.StatusBadRequest, dto.LegacyError{Error: "Amount is required"})
		return
	}
	if body.Currency == "" {
		body.Currency = payment.DefaultCurrency
	}
	if body.Receipt == "" {
		body.Receipt = checkout.Receipt(h.now())
	}

	order, err := h.gateway.CreateOrder(c.Request.Context(), &payment.CreateOrderRequest{
		Amount:   catalog.ToMinorUnits(body.Amount.Decimal),
		Currency: body.Currency,
		Receipt:  body.Receipt,
	})
	if err != nil {
		h.logger.Error("Gateway order creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.LegacyError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// VerifyPayment handles /api/verify-payment
// @ID           verifyPayment
// @Summary      Verify a payment signature
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body payment.Confirmation true "Request body"
// @Success      200 {object} dto.LegacyStatus
// @Failure      400 {object} dto.LegacyError
// @Failure      405 {object} dto.LegacyError
// @Router       /api/verify-payment [post]
func (h *PaymentAPIHandler) VerifyPayment(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, dto.LegacyError{Error: "Method Not Allowed"})
		return
	}

	var body payment.Confirmation
	if err := c.ShouldBindJSON(&body); err != nil || !body.Complete() {
		c.JSON(http.StatusBadRequest, dto.LegacyError{Error: "Missing parameters"})
		return
	}

	if err := payment.VerifySignature(body, h.keySecret); err != nil {
		h.logger.Warn("Payment signature mismatch",
			zap.String("order_id", body.OrderID),
			zap.String("payment_id", body.PaymentID),
		)
		c.JSON(http.StatusBadRequest, dto.LegacyStatus{Status: "failure", Message: "Transaction not legit!"})
		return
	}
	c.JSON(http.StatusOK, dto.LegacyStatus{Status: "success", Message: "Payment verified successfully"})
}
