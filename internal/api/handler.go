package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	auth          *service.AuthService
	catalog       *service.CatalogService
	cart          *service.CartService
	checkout      *service.CheckoutService
	orders        *service.OrderService
	webhookSecret string
	feed          *OrderFeed
}

// NewHandler creates a new HTTP handler
func NewHandler(
	auth *service.AuthService,
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	orders *service.OrderService,
	webhookSecret string,
) *Handler {
	h := &Handler{
		auth:          auth,
		catalog:       catalog,
		cart:          cart,
		checkout:      checkout,
		orders:        orders,
		webhookSecret: webhookSecret,
		feed:          NewOrderFeed(),
	}
	orders.SetStatusListener(h.feed.Broadcast)
	return h
}

// SetupRoutes sets up HTTP routes. Public, user-private and admin-private
// paths are enumerated here and nowhere else; handlers never re-check
// roles themselves.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	// Public
	api.POST("/auth/signup", h.signup)
	api.POST("/auth/login", h.login)
	api.POST("/auth/oauth", h.oauthLogin)
	api.POST("/auth/forgot", h.forgotPassword)
	api.POST("/auth/reset", h.resetPassword)
	api.GET("/products", h.listProducts)
	api.GET("/products/:id", h.getProduct)
	api.POST("/webhook", h.paymentWebhook)

	// User-private
	private := api.Group("", h.Authenticate())
	private.GET("/cart", h.getCart)
	private.PUT("/cart/items", h.setCartItem)
	private.DELETE("/cart", h.clearCart)
	private.POST("/checkout", h.placeOrder)
	private.GET("/orders", h.listMyOrders)
	private.GET("/orders/:id", h.getOrder)

	// Admin-private
	admin := api.Group("/admin", h.Authenticate(), h.RequireRole("admin"))
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.PUT("/variants/:id", h.updateVariant)
	admin.GET("/products/export", h.exportProducts)
	admin.GET("/orders", h.listAllOrders)
	admin.POST("/orders/:id/ship", h.shipOrder)
	admin.GET("/orders/feed", h.orderFeed)
	admin.GET("/summary", h.orderSummary)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
