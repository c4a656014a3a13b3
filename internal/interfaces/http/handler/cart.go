package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallypro/storefront/internal/application/cart"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// CartHandler serves the per-session cart. Signed-in visitors use their
// session; anonymous visitors carry an X-Session-ID the server hands out.
type CartHandler struct {
	BaseHandler
	carts *cart.Service
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

// CartRequest adds a product to the cart
type CartRequest struct {
	ProductID string `json:"productId" binding:"required,max=64"`
}

// CartResponse is the cart with its derived totals
type CartResponse struct {
	Items []cart.Item     `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func newCartResponse(items []cart.Item) CartResponse {
	if items == nil {
		items = []cart.Item{}
	}
	return CartResponse{Items: items, Count: len(items), Total: cart.Total(items)}
}

// cartSession resolves the cart key and echoes it back to the client
func cartSession(c *gin.Context) string {
	id := middleware.GetSessionID(c)
	if id == "" {
		id = c.GetHeader(middleware.SessionIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
	}
	c.Header(middleware.SessionIDHeader, id)
	return id
}

// Get handles GET /api/v1/cart
// @ID           getCart
// @Summary      Get the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} dto.Response{data=CartResponse}
// @Failure      500 {object} dto.Response
// @Router       /api/v1/cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	items, err := h.carts.Items(c.Request.Context(), cartSession(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newCartResponse(items))
}

// Add handles POST /api/v1/cart/items. Adding a product already in the
// cart is a no-op.
// @ID           addCartItem
// @Summary      Add a product to the cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        request body CartRequest true "Request body"
// @Success      200 {object} dto.Response{data=CartResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/cart/items [post]
func (h *CartHandler) Add(c *gin.Context) {
	var req CartRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items, err := h.carts.Add(c.Request.Context(), cartSession(c), req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newCartResponse(items))
}

// Remove handles DELETE /api/v1/cart/items/:productId
// @ID           removeCartItem
// @Summary      Remove a product from the cart
// @Tags         cart
// @Produce      json
// @Param        productId path string true "Product ID"
// @Success      200 {object} dto.Response{data=CartResponse}
// @Failure      500 {object} dto.Response
// @Router       /api/v1/cart/items/{productId} [delete]
func (h *CartHandler) Remove(c *gin.Context) {
	items, err := h.carts.Remove(c.Request.Context(), cartSession(c), c.Param("productId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newCartResponse(items))
}

// Clear handles DELETE /api/v1/cart
// @ID           clearCart
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Success      200 {object} dto.Response{data=CartResponse}
// @Failure      500 {object} dto.Response
// @Router       /api/v1/cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), cartSession(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, newCartResponse(nil))
}
