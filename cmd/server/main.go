package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/application/admin"
	"github.com/tallypro/storefront/internal/application/cart"
	appcatalog "github.com/tallypro/storefront/internal/application/catalog"
	"github.com/tallypro/storefront/internal/application/checkout"
	appidentity "github.com/tallypro/storefront/internal/application/identity"
	appsales "github.com/tallypro/storefront/internal/application/sales"
	appsupport "github.com/tallypro/storefront/internal/application/support"
	"github.com/tallypro/storefront/internal/domain/payment"
	"github.com/tallypro/storefront/internal/infrastructure/auth"
	"github.com/tallypro/storefront/internal/infrastructure/cache"
	"github.com/tallypro/storefront/internal/infrastructure/config"
	"github.com/tallypro/storefront/internal/infrastructure/kv"
	"github.com/tallypro/storefront/internal/infrastructure/logger"
	infrapayment "github.com/tallypro/storefront/internal/infrastructure/payment"
	"github.com/tallypro/storefront/internal/infrastructure/persistence"
	"github.com/tallypro/storefront/internal/infrastructure/scheduler"
	"github.com/tallypro/storefront/internal/infrastructure/telemetry"
	"github.com/tallypro/storefront/internal/interfaces/http/handler"
	"github.com/tallypro/storefront/internal/interfaces/http/middleware"
	"github.com/tallypro/storefront/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			TallyPro Storefront API
//	@version		1.0
//	@description	Catalog, checkout, account and back-office API of the TallyPro storefront

//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration (.env, config.toml, TALLYPRO_* overrides)
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting TallyPro storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	meters, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meters.Shutdown(context.Background()); err != nil {
			log.Warn("Meter shutdown failed", zap.Error(err))
		}
	}()

	logs, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		if err := logs.Shutdown(context.Background()); err != nil {
			log.Warn("Log export shutdown failed", zap.Error(err))
		}
	}()
	log = logs.Bridge(log, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	// Redis is optional: it backs sessions, carts, the checkout guard and
	// the local store when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = kv.Dial(ctx, kv.RedisConfig{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	medium, err := persistence.NewMedium(cfg, redisClient)
	if err != nil {
		log.Fatal("Failed to open key-value medium", zap.Error(err))
	}
	defer func() { _ = medium.Close() }()

	// Bind the persistence facade once for the life of the process
	st, err := persistence.NewStore(ctx, cfg, persistence.Deps{Logger: log, Medium: medium})
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Error closing store", zap.Error(err))
		}
	}()

	// Payment gateway: Razorpay when keys are configured, otherwise the stub
	var gateway interface {
		payment.Gateway
		Secret() string
	}
	if cfg.Razorpay.Configured() {
		gateway, err = infrapayment.NewRazorpayAdapter(infrapayment.RazorpayConfigFrom(cfg.Razorpay), log)
		if err != nil {
			log.Fatal("Failed to configure Razorpay", zap.Error(err))
		}
	} else {
		log.Warn("Razorpay keys not configured, using the stub gateway")
		gateway = infrapayment.NewStubGateway()
	}
	scripts := infrapayment.NewScriptLoader(cfg.Razorpay.ScriptURL, &http.Client{Timeout: cfg.Razorpay.Timeout}, log)

	guard := cache.NewGuard(redisClient, log)
	defer func() { _ = guard.Close() }()

	bridge := checkout.NewBridge(gateway, scripts, guard, checkout.Config{
		MerchantName:    cfg.Checkout.MerchantName,
		ThemeColor:      cfg.Checkout.ThemeColor,
		Currency:        cfg.Checkout.Currency,
		NotesAddress:    cfg.Checkout.NotesAddress,
		KeySecret:       gateway.Secret(),
		InFlightTTL:     cfg.Checkout.InFlightTTL,
		PendingLifetime: cfg.Checkout.PendingLifetime,
	}, log)

	// Sessions
	jwtService := auth.NewJWTService(cfg.JWT)
	blacklist := auth.NewKVTokenBlacklist(medium)
	sessions := appidentity.NewSessionService(st, medium, jwtService, blacklist, appidentity.SessionServiceConfig{
		OTPTTL:    cfg.OTP.TTL,
		ExposeOTP: cfg.OTP.ExposeCode,
	}, log)

	// Application services
	reconciler := appsales.NewReconciler(st, log)
	// Orders opened through /api/create-order are recorded so a guest
	// purchase can redeem each one once
	ledger := infrapayment.NewOrderLedger(gateway, medium, guard, infrapayment.DefaultOrderLedgerTTL, log)
	purchases := appsales.NewPurchaseService(st, bridge, log).WithOrderClaims(ledger, cfg.Checkout.Currency)
	products := appcatalog.NewProductService(st, log)
	carts := cart.NewService(st, medium, log)
	accounts := appidentity.NewAccountService(st, log)
	supportService := appsupport.NewService(st, log)
	adminService := admin.NewService(st, blacklist, reconciler, cfg.JWT.AccessTokenExpiration, cfg.Checkout.Currency, log)

	// Reconciliation scheduler
	reconcileScheduler := scheduler.NewReconcileScheduler(
		scheduler.NewScheduler(cfg.Scheduler, scheduler.NewReconcileExecutor(reconciler, log), log),
		cfg.Scheduler,
		log,
	)
	if err := reconcileScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
	}

	checks := map[string]handler.HealthCheck{
		"store": func(ctx context.Context) error {
			_, err := st.GetProducts(ctx)
			return err
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	system := handler.NewSystemHandler(cfg.App.Name, version, st.Backend(), checks)
	if pr, ok := st.(persistence.PoolReporter); ok {
		system.WithPoolStats(func() (any, error) { return pr.PoolStats() })
	}

	heartbeat := handler.DefaultHeartbeat
	engine, err := router.New(log, sessions, router.Handlers{
		System:   system,
		Auth:     handler.NewAuthHandler(sessions),
		Products: handler.NewProductHandler(products, heartbeat, log),
		Cart:     handler.NewCartHandler(carts),
		Checkout: handler.NewCheckoutHandler(purchases, bridge, scripts, sessions, gateway.Secret(), log),
		Payments: handler.NewPaymentAPIHandler(ledger, gateway.Secret(), log),
		Account:  handler.NewAccountHandler(accounts, sessions, log),
		Support:  handler.NewSupportHandler(supportService, heartbeat, log),
		Admin:    handler.NewAdminHandler(adminService),
	}, router.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     cfg.Telemetry.Enabled,
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader, middleware.SessionIDHeader},
			MaxAge:        12 * time.Hour,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RateLimiter:    limiter,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Meter:          meters.Meter("http.server"),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.String("backend", st.Backend()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Reconciliation scheduler did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
