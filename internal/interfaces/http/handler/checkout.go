package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/application/checkout"
	appidentity "github.com/tallypro/storefront/internal/application/identity"
	appsales "github.com/tallypro/storefront/internal/application/sales"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// Settler settles open widget checkouts
type Settler interface {
	Succeed(ctx context.Context, orderID string, c payment.Confirmation) (*checkout.Outcome, error)
	Fail(ctx context.Context, orderID string, detail payment.FailureDetail) (*checkout.Outcome, error)
	Dismiss(ctx context.Context, orderID string) error
}

// CheckoutHandler opens and settles widget checkouts
type CheckoutHandler struct {
	BaseHandler
	purchases *appsales.PurchaseService
	settler   Settler
	scripts   checkout.ScriptSource
	sessions  *appidentity.SessionService
	keySecret string
	logger    *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(
	purchases *appsales.PurchaseService,
	settler Settler,
	scripts checkout.ScriptSource,
	sessions *appidentity.SessionService,
	keySecret string,
	logger *zap.Logger,
) *CheckoutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutHandler{
		purchases: purchases,
		settler:   settler,
		scripts:   scripts,
		sessions:  sessions,
		keySecret: keySecret,
		logger:    logger,
	}
}

// OpenRequest starts a checkout for the signed-in customer
type OpenRequest struct {
	ProductID   string `json:"productId" binding:"required,max=64"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,indian_phone"`
	TallySerial string `json:"tallySerial" binding:"omitempty,max=40"`
}

// GuestOpenRequest starts a checkout for a visitor identified by email
type GuestOpenRequest struct {
	OpenRequest
	Email string `json:"email" binding:"required,email"`
}

// GuestPurchaseRequest records a guest purchase paid outside the widget
// bridge. The confirmation must verify and name an unredeemed order from
// /api/create-order for the product's price.
type GuestPurchaseRequest struct {
	GuestOpenRequest
	payment.Confirmation
}

// GuestPurchaseResponse carries the account a guest purchase landed on.
// Password is set only when a new account was created.
type GuestPurchaseResponse struct {
	User     *identity.User `json:"user"`
	Password string         `json:"password,omitempty"`
}

func (r OpenRequest) details() sales.PurchaseDetails {
	return sales.PurchaseDetails{PhoneNumber: r.PhoneNumber, TallySerial: r.TallySerial}
}

// Open handles POST /api/v1/checkout
// @ID           openCheckout
// @Summary      Open a widget checkout for a signed-in customer
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body OpenRequest true "Request body"
// @Success      201 {object} dto.Response{data=checkout.WidgetOptions}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/checkout [post]
func (h *CheckoutHandler) Open(c *gin.Context) {
	var req OpenRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opts, err := h.purchases.BeginCheckout(c.Request.Context(), middleware.GetUserID(c), req.ProductID, req.details())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, opts)
}

// GuestOpen handles POST /api/v1/checkout/guest
// @ID           openGuestCheckout
// @Summary      Open a widget checkout for a guest
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body GuestOpenRequest true "Request body"
// @Success      201 {object} dto.Response{data=checkout.WidgetOptions}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /api/v1/checkout/guest [post]
func (h *CheckoutHandler) GuestOpen(c *gin.Context) {
	var req GuestOpenRequest
	if !h.BindJSON(c, &req) {
		return
	}
	opts, err := h.purchases.BeginGuestCheckout(c.Request.Context(), req.Email, req.ProductID, req.details())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, opts)
}

// Script handles GET /api/checkout/script
// @ID           getCheckoutScript
// @Summary      Serve the payment widget script
// @Tags         checkout
// @Produce      application/javascript
// @Success      200 {string} string "Widget script"
// @Failure      503 {object} dto.Response
// @Router       /api/checkout/script [get]
func (h *CheckoutHandler) Script(c *gin.Context) {
	script, err := h.scripts.Load(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Last-Modified", script.FetchedAt.UTC().Format(http.TimeFormat))
	c.Data(http.StatusOK, script.ContentType, script.Body)
}

// Success handles POST /api/checkout/:orderId/success with the widget's
// handler payload
// @ID           settleCheckoutSuccess
// @Summary      Report a captured payment
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Gateway order ID"
// @Param        request body payment.Confirmation true "Request body"
// @Success      200 {object} dto.Response{data=checkout.Outcome}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/checkout/{orderId}/success [post]
func (h *CheckoutHandler) Success(c *gin.Context) {
	var confirmation payment.Confirmation
	if !h.BindJSON(c, &confirmation) {
		return
	}
	outcome, err := h.settler.Succeed(c.Request.Context(), c.Param("orderId"), confirmation)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.refreshSession(c, outcome)
	h.BaseHandler.Success(c, outcome)
}

// Failure handles POST /api/checkout/:orderId/failure with the payment.failed error
// @ID           settleCheckoutFailure
// @Summary      Report a failed payment
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        orderId path string true "Gateway order ID"
// @Param        request body payment.FailureDetail true "Request body"
// @Success      200 {object} dto.Response{data=checkout.Outcome}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/checkout/{orderId}/failure [post]
func (h *CheckoutHandler) Failure(c *gin.Context) {
	var detail payment.FailureDetail
	if !h.BindJSON(c, &detail) {
		return
	}
	outcome, err := h.settler.Fail(c.Request.Context(), c.Param("orderId"), detail)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.BaseHandler.Success(c, outcome)
}

// Dismiss handles POST /api/checkout/:orderId/dismiss
// @ID           dismissCheckout
// @Summary      Close a checkout without paying
// @Tags         checkout
// @Produce      json
// @Param        orderId path string true "Gateway order ID"
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/checkout/{orderId}/dismiss [post]
func (h *CheckoutHandler) Dismiss(c *gin.Context) {
	if err := h.settler.Dismiss(c.Request.Context(), c.Param("orderId")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GuestPurchase handles POST /api/v1/guest-purchase
// @ID           guestPurchase
// @Summary      Record a guest purchase from a verified payment
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        request body GuestPurchaseRequest true "Request body"
// @Success      201 {object} dto.Response{data=GuestPurchaseResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/guest-purchase [post]
func (h *CheckoutHandler) GuestPurchase(c *gin.Context) {
	var req GuestPurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := payment.VerifySignature(req.Confirmation, h.keySecret); err != nil {
		h.HandleError(c, err)
		return
	}
	user, password, err := h.purchases.GuestPurchase(c.Request.Context(), req.Email, req.ProductID, req.Confirmation, req.details())
	if err != nil && user == nil {
		h.HandleError(c, err)
		return
	}
	if err != nil {
		h.logger.Warn("Guest purchase recorded with pending entitlement",
			zap.String("user_id", user.ID),
			zap.String("product_id", req.ProductID),
			zap.Error(err),
		)
	}
	h.Created(c, GuestPurchaseResponse{User: user, Password: password})
}

// refreshSession updates the caller's session mirror after a captured
// payment so the new entitlement shows without signing in again
func (h *CheckoutHandler) refreshSession(c *gin.Context, outcome *checkout.Outcome) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" || outcome.Status == checkout.OutcomeFailed {
		return
	}
	if _, err := h.sessions.Refresh(c.Request.Context(), sessionID); err != nil {
		h.logger.Warn("Failed to refresh session after purchase",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
