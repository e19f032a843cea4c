package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentinelshop/storefront-api/config"
	"github.com/sentinelshop/storefront-api/internal/app/controller"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/app/service"
	"github.com/sentinelshop/storefront-api/internal/db"
	"github.com/sentinelshop/storefront-api/internal/invoice"
	"github.com/sentinelshop/storefront-api/internal/middleware"
	"github.com/sentinelshop/storefront-api/internal/router"
	"github.com/sentinelshop/storefront-api/internal/scheduler"
	"github.com/sentinelshop/storefront-api/internal/storage"
	"github.com/sentinelshop/storefront-api/internal/websocket"
	"github.com/sentinelshop/storefront-api/pkg/logger"
	"github.com/sentinelshop/storefront-api/pkg/payment/stripe"
	"github.com/sentinelshop/storefront-api/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		EnableColor: true,
	})

	logger.Info("Starting storefront API", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.Seed(); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Payment provider
	stripeClient, err := stripe.NewClient(stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		UIMode:        cfg.Stripe.UIMode,
		SuccessURL:    cfg.Checkout.SuccessURL,
		CancelURL:     cfg.Checkout.CancelURL,
		ReturnURL:     cfg.Checkout.ReturnURL,
	})
	if err != nil {
		logger.Fatal("Failed to configure payment provider", err)
	}

	// Optional confirmation lock
	var locker service.Locker
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, confirmations run without a distributed lock", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			locker = redis.NewLocker(redis.GetClient(), "storefront:")
			defer func() {
				if err := redis.Close(); err != nil {
					logger.Error("Failed to close Redis connection", err)
				}
			}()
		}
	}

	// Invoice storage
	var invoiceStore invoice.Store
	if cfg.Invoice.Storage == "s3" {
		invoiceStore = storage.NewS3InvoiceStore(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.Prefix,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
	} else {
		invoiceStore = invoice.NewLocalStore(cfg.Invoice.Dir, cfg.Invoice.PublicPrefix)
	}
	renderer := invoice.NewRenderer(cfg.Invoice.BusinessName, cfg.Invoice.BusinessAddress...)

	// Live order events
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	// Initialize repositories
	database := db.GetDB()
	userRepo := repository.NewUserRepository(database)
	productRepo := repository.NewProductRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	cartRepo := repository.NewCartRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	addressRepo := repository.NewAddressRepository(database)
	paymentRepo := repository.NewPaymentMethodRepository(database)

	// Initialize services
	sessionService := service.NewSessionService(sessionRepo, cartRepo, cfg.Session.TTL, cfg.Session.RenewalWindow)
	authService := service.NewAuthService(
		userRepo,
		stripeClient,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	accountService := service.NewAccountService(addressRepo, paymentRepo)
	guestService := service.NewGuestPromotionService(database, stripeClient)
	checkoutService := service.NewCheckoutService(
		cartRepo,
		orderRepo,
		userRepo,
		addressRepo,
		paymentRepo,
		guestService,
		stripeClient,
		cfg.Stripe.Currency,
	)
	orderService := service.NewOrderService(orderRepo, cfg.Checkout.PendingTTL)
	confirmationService := service.NewConfirmationService(service.ConfirmationDeps{
		OrderRepo:   orderRepo,
		CartRepo:    cartRepo,
		SessionRepo: sessionRepo,
		UserRepo:    userRepo,
		AddressRepo: addressRepo,
		PaymentRepo: paymentRepo,
		Provider:    stripeClient,
		Renderer:    renderer,
		Store:       invoiceStore,
		Locker:      locker,
		LockTTL:     cfg.Checkout.LockTTL,
		Notifier:    hub,
	})

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	checkoutController := controller.NewCheckoutController(
		checkoutService,
		confirmationService,
		hub,
		websocket.Upgrader(cfg.CORS.AllowedOrigins),
		cfg.Stripe.WebhookSecret,
	)
	orderController := controller.NewOrderController(orderService)
	accountController := controller.NewAccountController(accountService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	sessionMiddleware := middleware.NewSessionMiddleware(sessionService, cfg.Session.CookieName, cfg.Server.IsProduction())

	// Background jobs
	if cfg.Scheduler.Enabled {
		jobs := scheduler.NewMaintenanceScheduler(
			orderService,
			sessionService,
			cfg.Scheduler.AbandonPendingSpec,
			cfg.Scheduler.PurgeSessionsSpec,
		)
		if err := jobs.Start(); err != nil {
			logger.Fatal("Failed to start scheduler", err)
		}
		defer jobs.Stop()
	}

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		checkoutController,
		orderController,
		accountController,
		authMiddleware,
		sessionMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shut down", err)
	}
	logger.Info("Server stopped successfully")
}
