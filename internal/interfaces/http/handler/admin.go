package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/tallypro/storefront/internal/application/admin"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// AdminHandler serves the back-office user, order and revenue endpoints
type AdminHandler struct {
	BaseHandler
	admin *admin.Service
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service *admin.Service) *AdminHandler {
	return &AdminHandler{admin: service}
}

// AddUserRequest creates an account directly
type AddUserRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,max=72"`
	Role        string `json:"role" binding:"omitempty,oneof=customer admin super_admin support_admin"`
	PhoneNumber string `json:"phoneNumber" binding:"omitempty,indian_phone"`
	TallySerial string `json:"tallySerial" binding:"omitempty,max=40"`
}

// Users handles GET /api/v1/admin/users
// @ID           listUsers
// @Summary      List all users
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=[]identity.User}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	users, err := h.admin.Users(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, users)
}

// AddUser handles POST /api/v1/admin/users
// @ID           addUser
// @Summary      Create an account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body AddUserRequest true "Request body"
// @Success      201 {object} dto.Response{data=identity.User}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/users [post]
func (h *AdminHandler) AddUser(c *gin.Context) {
	var req AddUserRequest
	if !h.BindJSON(c, &req) {
		return
	}
	role := identity.Role(req.Role)
	if role == "" {
		role = identity.RoleCustomer
	}
	user, err := h.admin.AddUser(c.Request.Context(), store.NewUserInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        role,
		PhoneNumber: req.PhoneNumber,
		TallySerial: req.TallySerial,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// SetUserStatus handles PUT /api/v1/admin/users/:id/status
// @ID           setUserStatus
// @Summary      Activate or deactivate a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "User ID"
// @Param        request body StatusRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/users/{id}/status [put]
func (h *AdminHandler) SetUserStatus(c *gin.Context) {
	var req StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	err := h.admin.SetUserStatus(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), identity.UserStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": c.Param("id"), "status": req.Status})
}

// Orders handles GET /api/v1/admin/orders
// @ID           listOrders
// @Summary      List all orders
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=[]sales.Order}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/orders [get]
func (h *AdminHandler) Orders(c *gin.Context) {
	orders, err := h.admin.Orders(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, orders)
}

// SetOrderStatus handles PUT /api/v1/admin/orders/:id/status
// @ID           setOrderStatus
// @Summary      Change an order status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID"
// @Param        request body StatusRequest true "Request body"
// @Success      200 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/orders/{id}/status [put]
func (h *AdminHandler) SetOrderStatus(c *gin.Context) {
	var req StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.admin.SetOrderStatus(c.Request.Context(), c.Param("id"), sales.OrderStatus(req.Status)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"id": c.Param("id"), "status": req.Status})
}

// Revenue handles GET /api/v1/admin/revenue
// @ID           getRevenue
// @Summary      Total revenue of successful orders
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/revenue [get]
func (h *AdminHandler) Revenue(c *gin.Context) {
	revenue, err := h.admin.Revenue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, revenue)
}

// Reconcile handles POST /api/v1/admin/reconcile
// @ID           reconcileEntitlements
// @Summary      Grant entitlements missing from paid orders
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/reconcile [post]
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.admin.Reconcile(c.Request.Context())
	if err != nil && report.Scanned == 0 {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
