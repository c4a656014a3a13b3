package handler

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcatalog "github.com/tallypro/storefront/internal/application/catalog"
	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/store"
)

// MaxUploadSize bounds admin file uploads
const MaxUploadSize = 256 << 20

// ProductHandler serves the catalog to visitors and administrators
type ProductHandler struct {
	BaseHandler
	products  *appcatalog.ProductService
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products *appcatalog.ProductService, heartbeat time.Duration, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{products: products, heartbeat: heartbeat, logger: logger}
}

// List handles GET /api/v1/products
// @ID           listProducts
// @Summary      List active products
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalog.Product}
// @Failure      500 {object} dto.Response
// @Router       /api/v1/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.products.ListActive(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, products)
}

// Get handles GET /api/v1/products/:id
// @ID           getProduct
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      200 {object} dto.Response{data=catalog.Product}
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /api/v1/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("id"), false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Stream handles GET /api/v1/products/stream with active-catalog snapshots
// @ID           streamProducts
// @Summary      Stream the active catalog
// @Tags         products
// @Produce      text/event-stream
// @Success      200 {string} string "Server-Sent Events"
// @Failure      503 {object} dto.Response
// @Router       /api/v1/products/stream [get]
func (h *ProductHandler) Stream(c *gin.Context) {
	h.stream(c, true)
}

// AdminStream handles GET /api/v1/admin/products/stream with the full catalog
// @ID           streamAllProducts
// @Summary      Stream the full catalog
// @Tags         admin
// @Produce      text/event-stream
// @Success      200 {string} string "Server-Sent Events"
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/products/stream [get]
func (h *ProductHandler) AdminStream(c *gin.Context) {
	h.stream(c, false)
}

func (h *ProductHandler) stream(c *gin.Context, activeOnly bool) {
	Stream(c, func(ctx context.Context, fn func([]catalog.Product)) (store.Unsubscribe, error) {
		return h.products.Subscribe(ctx, activeOnly, fn)
	}, StreamConfig{Event: "products", Heartbeat: h.heartbeat, Logger: h.logger})
}

// AdminList handles GET /api/v1/admin/products including deactivated modules
// @ID           listAllProducts
// @Summary      List every product
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.Response{data=[]catalog.Product}
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/products [get]
func (h *ProductHandler) AdminList(c *gin.Context) {
	products, err := h.products.ListAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, products)
}

// Create handles POST /api/v1/admin/products
// @ID           createProduct
// @Summary      Create a product
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body ProductRequest true "Request body"
// @Success      201 {object} dto.Response{data=catalog.Product}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.products.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update handles PUT /api/v1/admin/products/:id
// @ID           updateProduct
// @Summary      Update a product
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID"
// @Param        request body ProductRequest true "Request body"
// @Success      200 {object} dto.Response{data=catalog.Product}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	var req ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	product, err := h.products.Update(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete handles DELETE /api/v1/admin/products/:id. The product is
// deactivated, never removed.
// @ID           deleteProduct
// @Summary      Deactivate a product
// @Tags         admin
// @Produce      json
// @Param        id path string true "Product ID"
// @Success      204
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Upload handles POST /api/v1/admin/uploads as multipart form data with a
// "file" part and optional "productId" and "kind" (module or demo) fields
// @ID           uploadModule
// @Summary      Upload a module file
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Module file"
// @Param        productId formData string true "Product to attach the file to"
// @Success      201 {object} dto.Response{data=UploadResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /api/v1/admin/uploads [post]
func (h *ProductHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Unreadable file")
		return
	}
	defer file.Close()

	in := appcatalog.UploadInput{
		ProductID:   c.PostForm("productId"),
		Kind:        appcatalog.FileKind(c.DefaultPostForm("kind", string(appcatalog.FileKindModule))),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	if in.Kind != appcatalog.FileKindModule && in.Kind != appcatalog.FileKindDemo {
		h.BadRequest(c, "kind must be module or demo")
		return
	}

	log := h.logger.With(zap.String("file", in.FileName))
	lastDecile := -1
	url, product, err := h.products.Upload(c.Request.Context(), in, file, func(percent float64) {
		if decile := int(math.Floor(percent / 10)); decile > lastDecile {
			lastDecile = decile
			log.Debug("Upload progress", zap.Float64("percent", percent))
		}
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, UploadResponse{URL: url, Product: product})
}
