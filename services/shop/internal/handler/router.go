package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/services/shop/internal/middleware"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/service"
)

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — HTTP роутер магазина.
type Router struct {
	engine         *gin.Engine
	cfg            RouterConfig
	readinessCheck ReadinessChecker
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	Catalog        service.CatalogService
	Quotes         service.QuoteService
	Promocodes     service.PromocodeService
	Checkout       service.CheckoutService
	Reconciliation service.ReconciliationService
	Webhooks       notify.WebhookManager
	Tasks          TaskQueue
	Tokens         TokenRevoker

	AuthMW        *middleware.AuthMiddleware
	RateLimitMW   *middleware.RateLimitMiddleware
	IdempotencyMW *middleware.IdempotencyMiddleware
	TracingMW     *middleware.TracingMiddleware

	AllowedOrigins        []string
	ClientBaseURL         string
	TelegramWebhookURL    string
	TelegramWebhookSecret string

	ReadinessCheck ReadinessChecker // опциональная проверка готовности для /readyz
	Debug          bool             // режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// логгер и ID запроса нужны всем остальным middleware, включая recovery
	if cfg.TracingMW != nil {
		engine.Use(cfg.TracingMW.Handle())
	}
	engine.Use(middleware.Recovery())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(otelgin.Middleware("shop"))
	engine.Use(metrics.GinMiddleware())

	r := &Router{
		engine:         engine,
		cfg:            cfg,
		readinessCheck: cfg.ReadinessCheck,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	cfg := r.cfg

	r.engine.GET("/health", r.healthCheck)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	api := r.engine.Group("")
	if cfg.RateLimitMW != nil {
		api.Use(cfg.RateLimitMW.Handle())
	}

	operator := func(group *gin.RouterGroup) {
		if cfg.AuthMW != nil {
			group.Use(cfg.AuthMW.Handle())
		}
	}

	// === Каталог ===
	catalogHandler := NewCatalogHandler(cfg.Catalog)
	api.GET("/products", catalogHandler.ListProducts)
	api.GET("/products/:slug", catalogHandler.GetProduct)
	api.GET("/categories", catalogHandler.ListCategories)
	api.GET("/tags", catalogHandler.ListTags)

	// === Расчёт стоимости ===
	orderHandler := NewOrderHandler(cfg.Quotes)
	api.POST("/orders/calculate-price", orderHandler.CalculatePrice)

	// === Промокоды ===
	promocodeHandler := NewPromocodeHandler(cfg.Promocodes)
	api.POST("/promocodes/validate", promocodeHandler.Validate)

	// === Платежи ===
	paymentHandler := NewPaymentHandler(PaymentHandlerConfig{
		Checkout:       cfg.Checkout,
		Reconciliation: cfg.Reconciliation,
		Webhooks:       cfg.Webhooks,
		Tasks:          cfg.Tasks,
		ClientBaseURL:  cfg.ClientBaseURL,
		WebhookURL:     cfg.TelegramWebhookURL,
	})
	payments := api.Group("/payments")
	{
		initiate := []gin.HandlerFunc{paymentHandler.Initiate}
		if cfg.IdempotencyMW != nil {
			initiate = append([]gin.HandlerFunc{cfg.IdempotencyMW.Handle()}, initiate...)
		}
		payments.POST("/initiate", initiate...)
		payments.GET("/success", paymentHandler.Success)
		payments.GET("/failure", paymentHandler.Failure)
		payments.POST("/telegram-callback",
			middleware.TelegramSecret(cfg.TelegramWebhookSecret),
			paymentHandler.TelegramCallback,
		)

		webhook := payments.Group("/setup-telegram-webhook")
		operator(webhook)
		webhook.GET("", paymentHandler.SetupTelegramWebhook)
	}

	// === Операторы ===
	adminHandler := NewAdminHandler(cfg.Reconciliation, cfg.Tokens)
	admin := api.Group("/admin")
	operator(admin)
	{
		admin.PATCH("/orders/:id/payment-status", adminHandler.UpdatePaymentStatus)
		admin.POST("/tokens/revoke", adminHandler.RevokeToken)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// healthCheck — проверка работоспособности сервиса (legacy).
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "shop",
	})
}

// livenessCheck — liveness probe: процесс отвечает.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe: зависимости доступны.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
