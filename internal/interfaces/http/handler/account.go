package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appidentity "github.com/tallypro/storefront/internal/application/identity"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// AccountHandler serves a signed-in customer's own account
type AccountHandler struct {
	BaseHandler
	accounts *appidentity.AccountService
	sessions *appidentity.SessionService
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *appidentity.AccountService, sessions *appidentity.SessionService, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{accounts: accounts, sessions: sessions, logger: logger}
}

// ProfileRequest is a partial profile edit
type ProfileRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	PhoneNumber *string `json:"phoneNumber" binding:"omitempty,max=16"`
	TallySerial *string `json:"tallySerial" binding:"omitempty,max=40"`
}

// PasswordRequest changes the account password
type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,max=72"`
}

// UpdateProfile handles PUT /api/v1/account/profile
// @ID           updateAccountProfile
// @Summary      Update the signed-in profile
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body ProfileRequest true "Request body"
// @Success      200 {object} dto.Response{data=identity.User}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/account/profile [put]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}
	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), identity.ProfileUpdate{
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		TallySerial: req.TallySerial,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if _, err := h.sessions.Refresh(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		h.logger.Warn("Failed to refresh session after profile update", zap.Error(err))
	}
	h.Success(c, user)
}

// ChangePassword handles PUT /api/v1/account/password
// @ID           changeAccountPassword
// @Summary      Change the account password
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        request body PasswordRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/account/password [put]
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req PasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.accounts.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Password updated"})
}

// Orders handles GET /api/v1/account/orders
// @ID           listAccountOrders
// @Summary      List the caller's orders
// @Tags         account
// @Produce      json
// @Success      200 {object} dto.Response{data=[]sales.Order}
// @Failure      401 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/account/orders [get]
func (h *AccountHandler) Orders(c *gin.Context) {
	orders, err := h.accounts.Orders(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, orders)
}

// Download handles GET /api/v1/account/downloads/:productId
// @ID           downloadAccountModule
// @Summary      Get the download of an owned module
// @Tags         account
// @Produce      json
// @Param        productId path string true "Product ID"
// @Success      200 {object} dto.Response{data=appidentity.Download}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/account/downloads/{productId} [get]
func (h *AccountHandler) Download(c *gin.Context) {
	download, err := h.accounts.Download(c.Request.Context(), middleware.GetUserID(c), c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, download)
}
