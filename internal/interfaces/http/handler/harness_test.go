package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tallypro/storefront/internal/application/admin"
	"github.com/tallypro/storefront/internal/application/cart"
	appcatalog "github.com/tallypro/storefront/internal/application/catalog"
	"github.com/tallypro/storefront/internal/application/checkout"
	appidentity "github.com/tallypro/storefront/internal/application/identity"
	appsales "github.com/tallypro/storefront/internal/application/sales"
	appsupport "github.com/tallypro/storefront/internal/application/support"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/cache"
	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	infrapayment "github.com/tallypro/storefront/internal/infrastructure/payment"
	"github.com/tallypro/storefront/internal/infrastructure/persistence/local"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
	"github.com/tallypro/storefront/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type staticScripts struct{ err error }

func (s staticScripts) Load(context.Context) (*infrapayment.Script, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &infrapayment.Script{
		Body:        []byte("window.Razorpay = function(){};"),
		ContentType: "application/javascript",
		FetchedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

// harness wires every handler over a seeded local store
type harness struct {
	t        *testing.T
	store    *local.Store
	sessions *appidentity.SessionService
	gateway  *infrapayment.StubGateway
	bridge   *checkout.Bridge
	engine   *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	medium := kv.NewMemoryStore()
	t.Cleanup(func() { _ = medium.Close() })
	guard := cache.NewInMemoryGuard()
	t.Cleanup(func() { _ = guard.Close() })

	h := &harness{t: t, store: testutil.NewLocalStore(t), gateway: infrapayment.NewStubGateway()}

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "handler-test-secret-0123456789abcdef",
		AccessTokenExpiration: time.Hour,
		Issuer:                "tallypro-storefront",
	})
	blacklist := auth.NewKVTokenBlacklist(medium)
	h.sessions = appidentity.NewSessionService(h.store, medium, jwtService, blacklist,
		appidentity.SessionServiceConfig{OTPTTL: time.Minute, ExposeOTP: true}, log)
	h.bridge = checkout.NewBridge(h.gateway, staticScripts{}, guard, checkout.Config{
		MerchantName: "TallyPro Solutions",
		ThemeColor:   "#3399cc",
		NotesAddress: "TallyPro Corporate Office",
		KeySecret:    h.gateway.Secret(),
	}, log)
	ledger := infrapayment.NewOrderLedger(h.gateway, medium, guard, time.Hour, log)
	purchases := appsales.NewPurchaseService(h.store, h.bridge, log).WithOrderClaims(ledger, "INR")
	reconciler := appsales.NewReconciler(h.store, log)

	authH := NewAuthHandler(h.sessions)
	products := NewProductHandler(appcatalog.NewProductService(h.store, log), time.Second, log)
	carts := NewCartHandler(cart.NewService(h.store, medium, log))
	checkoutH := NewCheckoutHandler(purchases, h.bridge, staticScripts{}, h.sessions, h.gateway.Secret(), log)
	account := NewAccountHandler(appidentity.NewAccountService(h.store, log), h.sessions, log)
	supportH := NewSupportHandler(appsupport.NewService(h.store, log), time.Second, log)
	adminH := NewAdminHandler(admin.NewService(h.store, blacklist, reconciler, time.Hour, "INR", log))
	legacy := NewPaymentAPIHandler(ledger, h.gateway.Secret(), log)

	requireSession := middleware.SessionAuth(h.sessions, log)
	optionalSession := middleware.OptionalSessionAuth(h.sessions)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Any("/api/create-order", legacy.CreateOrder)
	r.Any("/api/verify-payment", legacy.VerifyPayment)
	r.GET("/api/checkout/script", checkoutH.Script)
	r.POST("/api/checkout/:orderId/success", optionalSession, checkoutH.Success)
	r.POST("/api/checkout/:orderId/failure", checkoutH.Failure)
	r.POST("/api/checkout/:orderId/dismiss", checkoutH.Dismiss)

	v1 := r.Group("/api/v1")
	v1.POST("/auth/login", authH.Login)
	v1.POST("/auth/admin/login", authH.AdminLogin)
	v1.POST("/auth/signup", authH.Signup)
	v1.POST("/auth/otp/request", authH.RequestOTP)
	v1.POST("/auth/otp/verify", authH.VerifyOTP)
	v1.POST("/auth/logout", requireSession, authH.Logout)
	v1.GET("/auth/me", requireSession, authH.Me)
	v1.GET("/products", products.List)
	v1.GET("/products/stream", products.Stream)
	v1.GET("/products/:id", products.Get)
	v1.GET("/cart", optionalSession, carts.Get)
	v1.POST("/cart/items", optionalSession, carts.Add)
	v1.DELETE("/cart/items/:productId", optionalSession, carts.Remove)
	v1.DELETE("/cart", optionalSession, carts.Clear)
	v1.POST("/checkout", requireSession, checkoutH.Open)
	v1.POST("/checkout/guest", checkoutH.GuestOpen)
	v1.POST("/guest-purchase", checkoutH.GuestPurchase)
	v1.PUT("/account/profile", requireSession, account.UpdateProfile)
	v1.PUT("/account/password", requireSession, account.ChangePassword)
	v1.GET("/account/orders", requireSession, account.Orders)
	v1.GET("/account/downloads/:productId", requireSession, account.Download)
	v1.POST("/support/tickets", requireSession, supportH.OpenTicket)
	v1.POST("/feedback", supportH.LeaveFeedback)

	adm := v1.Group("/admin", requireSession, middleware.RequireAdmin())
	adm.GET("/products", products.AdminList)
	adm.POST("/products", products.Create)
	adm.PUT("/products/:id", products.Update)
	adm.DELETE("/products/:id", products.Delete)
	adm.POST("/uploads", products.Upload)
	adm.GET("/users", adminH.Users)
	adm.POST("/users", adminH.AddUser)
	adm.PUT("/users/:id/status", adminH.SetUserStatus)
	adm.GET("/orders", adminH.Orders)
	adm.PUT("/orders/:id/status", adminH.SetOrderStatus)
	adm.GET("/revenue", adminH.Revenue)
	adm.POST("/reconcile", adminH.Reconcile)
	adm.GET("/tickets", supportH.Tickets)
	adm.GET("/tickets/stream", supportH.StreamTickets)
	adm.PUT("/tickets/:id/status", supportH.SetTicketStatus)
	adm.GET("/feedback", supportH.Feedbacks)

	h.engine = r
	return h
}

// login signs in through the API and returns the bearer header
func (h *harness) login(email, password string, path identity.LoginPath) map[string]string {
	h.t.Helper()
	result, err := h.sessions.Login(context.Background(), appidentity.LoginInput{Email: email, Password: password, Path: path})
	require.NoError(h.t, err)
	return map[string]string{middleware.AuthHeaderKey: "Bearer " + result.AccessToken}
}

func (h *harness) customer() map[string]string {
	return h.login(testutil.CustomerEmail, testutil.CustomerPassword, identity.LoginPathCustomer)
}

func (h *harness) admin() map[string]string {
	return h.login(testutil.SuperAdminEmail, testutil.SuperAdminPass, identity.LoginPathAdmin)
}

func (h *harness) do(method, path string, body any, headers map[string]string) *testResponse {
	h.t.Helper()
	return &testResponse{t: h.t, ResponseRecorder: testutil.DoJSON(h.t, h.engine, method, path, body, headers)}
}
