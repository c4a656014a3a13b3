// Package router assembles the storefront HTTP API.
package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/infrastructure/logger"
	"github.com/tallypro/storefront/internal/interfaces/http/dto"
	"github.com/tallypro/storefront/internal/interfaces/http/handler"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
)

// Router mounts registrars under the versioned API prefix
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a RouteRegistrar to be registered by Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Handlers bundles every handler the API serves
type Handlers struct {
	System   *handler.SystemHandler
	Auth     *handler.AuthHandler
	Products *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Payments *handler.PaymentAPIHandler
	Account  *handler.AccountHandler
	Support  *handler.SupportHandler
	Admin    *handler.AdminHandler
}

// Options tune the global middleware chain
type Options struct {
	ServiceName string
	Tracing     bool
	CORS        middleware.CORSConfig
	// MaxBodySize caps JSON bodies. Uploads have their own limit.
	MaxBodySize    int64
	RateLimiter    *middleware.RateLimiter
	TrustedProxies []string
	// Meter enables HTTP server metrics when set
	Meter metric.Meter
}

// Paths that skip request logging and tracing
var quietPrefixes = []string{"/health", "/ready", "/api/v1/products/stream", "/api/v1/admin/tickets/stream", "/api/v1/admin/feedback/stream", "/api/v1/admin/products/stream"}

const uploadPath = "/api/v1/admin/uploads"

// New builds the engine with the middleware chain and every route
func New(log *zap.Logger, sessions middleware.TokenValidator, h Handlers, opts Options) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	if opts.Tracing {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: opts.ServiceName,
			Enabled:     true,
			Filters: []otelgin.Filter{func(r *http.Request) bool {
				return !hasPrefix(r.URL.Path, quietPrefixes)
			}},
		}))
	}
	metrics, err := middleware.HTTPMetrics(opts.Meter)
	if err != nil {
		return nil, err
	}
	engine.Use(
		metrics,
		middleware.RequestID(),
		logger.GinMiddleware(log, quietPrefixes...),
		logger.Recovery(log),
		middleware.CORSWithConfig(opts.CORS),
		middleware.Secure(),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(bodyLimit(opts.MaxBodySize, uploadPath))
	}
	if opts.Tracing {
		engine.Use(middleware.TracingAttributeInjector(), middleware.SpanErrorMarker())
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	requireSession := middleware.SessionAuth(sessions, log)
	optionalSession := middleware.OptionalSessionAuth(sessions)

	legacy := NewDomainGroup("payments", "/api")
	if opts.RateLimiter != nil {
		legacy.Use(middleware.RateLimit(opts.RateLimiter))
	}
	legacy.ANY("/create-order", h.Payments.CreateOrder).
		ANY("/verify-payment", h.Payments.VerifyPayment)
	widget := legacy.Group("widget", "/checkout")
	widget.GET("/script", h.Checkout.Script).
		POST("/:orderId/success", optionalSession, h.Checkout.Success).
		POST("/:orderId/failure", h.Checkout.Failure).
		POST("/:orderId/dismiss", h.Checkout.Dismiss)
	legacy.RegisterRoutes(&engine.RouterGroup)

	r := NewRouter(engine)
	r.Register(apiGroups(h, opts, requireSession, optionalSession)...)
	r.Setup()
	return engine, nil
}

func apiGroups(h Handlers, opts Options, requireSession, optionalSession gin.HandlerFunc) []RouteRegistrar {
	limit := func(g *DomainGroup) *DomainGroup {
		if opts.RateLimiter != nil {
			g.Use(middleware.RateLimit(opts.RateLimiter))
		}
		return g
	}

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.Info)

	auth := limit(NewDomainGroup("auth", "/auth"))
	auth.POST("/login", h.Auth.Login).
		POST("/admin/login", h.Auth.AdminLogin).
		POST("/signup", h.Auth.Signup).
		POST("/otp/request", h.Auth.RequestOTP).
		POST("/otp/verify", h.Auth.VerifyOTP).
		POST("/logout", requireSession, h.Auth.Logout).
		GET("/me", requireSession, h.Auth.Me)

	products := NewDomainGroup("products", "/products")
	products.GET("", h.Products.List).
		GET("/stream", h.Products.Stream).
		GET("/:id", h.Products.Get)

	cart := NewDomainGroup("cart", "/cart").Use(optionalSession)
	cart.GET("", h.Cart.Get).
		POST("/items", h.Cart.Add).
		DELETE("/items/:productId", h.Cart.Remove).
		DELETE("", h.Cart.Clear)

	checkout := limit(NewDomainGroup("checkout", "/checkout"))
	checkout.POST("", requireSession, h.Checkout.Open).
		POST("/guest", h.Checkout.GuestOpen)

	guest := limit(NewDomainGroup("guest-purchase", "/guest-purchase"))
	guest.POST("", h.Checkout.GuestPurchase)

	account := NewDomainGroup("account", "/account").Use(requireSession)
	account.PUT("/profile", h.Account.UpdateProfile).
		PUT("/password", h.Account.ChangePassword).
		GET("/orders", h.Account.Orders).
		GET("/downloads/:productId", h.Account.Download)

	support := NewDomainGroup("support", "/support").Use(requireSession)
	support.POST("/tickets", h.Support.OpenTicket)

	feedback := limit(NewDomainGroup("feedback", "/feedback"))
	feedback.POST("", h.Support.LeaveFeedback)

	admin := NewDomainGroup("admin", "/admin").Use(requireSession, middleware.RequireAdmin())
	admin.GET("/products", h.Products.AdminList).
		GET("/products/stream", h.Products.AdminStream).
		POST("/products", h.Products.Create).
		PUT("/products/:id", h.Products.Update).
		DELETE("/products/:id", h.Products.Delete).
		POST("/uploads", h.Products.Upload).
		GET("/users", h.Admin.Users).
		POST("/users", h.Admin.AddUser).
		PUT("/users/:id/status", h.Admin.SetUserStatus).
		GET("/orders", h.Admin.Orders).
		PUT("/orders/:id/status", h.Admin.SetOrderStatus).
		GET("/revenue", h.Admin.Revenue).
		POST("/reconcile", h.Admin.Reconcile).
		GET("/tickets", h.Support.Tickets).
		GET("/tickets/stream", h.Support.StreamTickets).
		PUT("/tickets/:id/status", h.Support.SetTicketStatus).
		GET("/feedback", h.Support.Feedbacks).
		GET("/feedback/stream", h.Support.StreamFeedbacks)

	return []RouteRegistrar{system, auth, products, cart, checkout, guest, account, support, feedback, admin}
}

// bodyLimit applies middleware.BodyLimit everywhere except the exempt prefixes
func bodyLimit(maxBytes int64, exempt ...string) gin.HandlerFunc {
	limit := middleware.BodyLimit(maxBytes)
	return func(c *gin.Context) {
		if hasPrefix(c.Request.URL.Path, exempt) {
			c.Next()
			return
		}
		limit(c)
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
