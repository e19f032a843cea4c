package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sentinelshop/storefront-api/config"
	"github.com/sentinelshop/storefront-api/internal/app/controller"
	"github.com/sentinelshop/storefront-api/internal/app/model"
	"github.com/sentinelshop/storefront-api/internal/middleware"
)

type Router struct {
	authController     *controller.AuthController
	productController  *controller.ProductController
	cartController     *controller.CartController
	checkoutController *controller.CheckoutController
	orderController    *controller.OrderController
	accountController  *controller.AccountController
	authMiddleware     *middleware.AuthMiddleware
	sessionMiddleware  *middleware.SessionMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	checkoutController *controller.CheckoutController,
	orderController *controller.OrderController,
	accountController *controller.AccountController,
	authMiddleware *middleware.AuthMiddleware,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		productController:  productController,
		cartController:     cartController,
		checkoutController: checkoutController,
		orderController:    orderController,
		accountController:  accountController,
		authMiddleware:     authMiddleware,
		sessionMiddleware:  sessionMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Storefront API is running",
		})
	})

	if r.config.Invoice.Storage != "s3" && r.config.Invoice.PublicPrefix != "" {
		router.Static(r.config.Invoice.PublicPrefix, r.config.Invoice.Dir)
	}

	// Session resolution needs the user, so it always runs after the
	// (optional) authentication middleware.
	withSession := []gin.HandlerFunc{
		r.authMiddleware.OptionalAuthenticate(),
		r.sessionMiddleware.Resolve(),
	}

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)
		}

		cart := v1.Group("/cart")
		cart.Use(withSession...)
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.AddToCart)
			cart.PUT("/:id", r.cartController.UpdateCartItem)
			cart.DELETE("/:id", r.cartController.RemoveFromCart)
			cart.DELETE("", r.cartController.ClearCart)
		}

		checkout := v1.Group("/checkout")
		{
			checkout.POST("/session", append(withSession, r.checkoutController.CreateSession)...)
			checkout.GET("/events", append(withSession, r.checkoutController.Events)...)
			checkout.GET("/confirm", r.authMiddleware.OptionalAuthenticate(), r.checkoutController.Confirm)
			checkout.POST("/webhook", r.checkoutController.Webhook)
		}

		addresses := v1.Group("/addresses")
		addresses.Use(r.authMiddleware.Authenticate())
		{
			addresses.GET("", r.accountController.ListAddresses)
			addresses.POST("", r.accountController.CreateAddress)
		}

		methods := v1.Group("/payment-methods")
		methods.Use(r.authMiddleware.Authenticate())
		{
			methods.GET("", r.accountController.ListPaymentMethods)
			methods.POST("", r.accountController.CreatePaymentMethod)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.GetOrders)
			orders.GET("/:id", r.orderController.GetOrderByID)
		}

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole(model.RoleAdmin))
		{
			admin.POST("/orders/abandon-stale", r.orderController.AbandonStale)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
