// Package main — точка входа магазина.
// Сервис считает стоимость корзины, оформляет заказы, регистрирует оплату
// в Альфа-Банке и сверяет результаты оплаты из банка, Telegram и от операторов.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/db"
	"example.com/jewelry-shop/pkg/healthcheck"
	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/pkg/kafka"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/pkg/outbox"
	"example.com/jewelry-shop/pkg/tracing"
	"example.com/jewelry-shop/services/shop/internal/alfabank"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/events"
	"example.com/jewelry-shop/services/shop/internal/handler"
	"example.com/jewelry-shop/services/shop/internal/middleware"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/repository"
	"example.com/jewelry-shop/services/shop/internal/service"
	"example.com/jewelry-shop/services/shop/internal/worker"
)

const (
	serviceName         = "shop"
	outboxAggregateType = "order"
	updateDedupTTL      = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	log := logger.Init(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.LogPretty,
		Service: serviceName,
	})

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Msg("Запуск магазина")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	// === Observability: Tracing ===

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName:    serviceName,
		Environment:    cfg.App.Env,
		JaegerEndpoint: cfg.Jaeger.OTLPEndpoint(),
		Enabled:        cfg.Jaeger.Enabled,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Хранилища ===

	gormDB, err := db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment())
	if err != nil {
		log.Fatal().Err(err).Msg("Не удалось подключиться к MySQL")
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия MySQL")
		}
	}()
	log.Info().Str("host", cfg.MySQL.Host).Str("database", cfg.MySQL.Database).Msg("Подключено к MySQL")

	if cfg.App.MigrateOnStart {
		models := append(repository.Models(), outbox.Model())
		if err := db.Migrate(ctx, gormDB, models...); err != nil {
			log.Fatal().Err(err).Msg("Ошибка миграции схемы")
		}
	}

	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}()
	log.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")

	catalogRepo := repository.NewCatalogRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)
	paymentRepo := repository.NewPaymentRepository(gormDB)
	promocodeRepo := repository.NewPromocodeRepository(gormDB)

	// === События: outbox → Kafka ===

	outboxStore := outbox.NewStore(gormDB, outboxAggregateType)
	publisher := events.NewOutboxPublisher(outboxStore, cfg.Kafka.Topic)

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka.Brokers, kafka.TopicSpec{
			Name:              cfg.Kafka.Topic,
			Partitions:        3,
			ReplicationFactor: 1,
		}); err != nil {
			log.Warn().Err(err).Msg("Не удалось создать топик Kafka")
		}

		producer, err = kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка создания Kafka producer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error().Err(err).Msg("Ошибка закрытия Kafka producer")
			}
		}()
	} else {
		log.Warn().Msg("Kafka не настроена, события остаются в outbox")
	}

	var relayPublisher outbox.Publisher
	if producer != nil {
		relayPublisher = producer
	}
	relay := outbox.NewRelay(outboxStore, relayPublisher, outbox.DefaultRelayConfig())

	// === Уведомления ===

	var bot notify.Bot = notify.Noop{}
	telegram, err := notify.NewTelegram(cfg.Telegram)
	switch {
	case err == nil:
		bot = telegram
		if cfg.Telegram.WebhookURL != "" {
			setupWebhook(ctx, log, telegram, cfg.Telegram.WebhookURL)
		}
	case errors.Is(err, notify.ErrNotConfigured):
		log.Warn().Msg("Telegram не настроен, уведомления операторам отключены")
	default:
		log.Error().Err(err).Msg("Telegram недоступен, уведомления операторам отключены")
	}

	mailer := notify.NewMailer(cfg.Email)
	if !cfg.Email.Enabled() {
		log.Warn().Msg("Resend не настроен, письма покупателям отключены")
	}

	// === Сервисы ===

	clock := domain.SystemClock{}
	gateway := alfabank.NewClient(cfg.AlfaBank)

	orderSvc := service.NewOrderService(service.OrderDeps{
		Catalog:    catalogRepo,
		Orders:     orderRepo,
		Promocodes: promocodeRepo,
		Notifier:   bot,
		Events:     publisher,
		Clock:      clock,
		Numbers:    domain.NewOrderNumberGenerator(clock),
	})
	paymentSvc := service.NewPaymentService(orderRepo, paymentRepo, gateway)
	checkoutSvc := service.NewCheckoutService(orderSvc, paymentSvc, mailer)
	reconSvc := service.NewReconciliationService(service.ReconciliationDeps{
		Catalog:  catalogRepo,
		Orders:   orderRepo,
		Payments: paymentRepo,
		Bot:      bot,
		Mailer:   mailer,
		Events:   publisher,
		Dedup:    notify.NewRedisDeduplicator(redisClient, updateDedupTTL),
		Clock:    clock,

		OrderNumbers: gateway,
	})

	// === Фоновая очередь ===

	queue := worker.NewQueue(worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}, log)
	queue.Start(ctx)

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		for taskErr := range queue.Errors() {
			log.Error().
				Err(taskErr.Err).
				Str("task_id", taskErr.TaskID).
				Str("task", taskErr.Name).
				Msg("Фоновая задача завершилась с ошибкой")
		}
	}()
	go func() {
		defer background.Done()
		relay.Run(ctx)
	}()

	// === Аутентификация операторов ===

	var authMW *middleware.AuthMiddleware
	var tokens handler.TokenRevoker
	if cfg.JWT.Enabled() {
		jwtManager, err := jwt.NewManager(jwt.Config{
			PublicKeyPath: cfg.JWT.PublicKeyPath,
			Issuer:        cfg.JWT.Issuer,
			TTL:           cfg.JWT.TokenTTL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Ошибка загрузки ключей JWT")
		}
		jwtManager.SetBlacklist(jwt.NewBlacklist(redisClient))
		authMW = middleware.NewAuthMiddleware(jwtManager)
		tokens = jwtManager
	} else {
		// без ключа операторские маршруты закрыты
		authMW = middleware.NewAuthMiddleware(rejectAll{})
		tokens = rejectAll{}
		log.Warn().Msg("JWT_PUBLIC_KEY_PATH не задан, операторские маршруты недоступны")
	}

	// === HTTP ===

	var rateLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Limit:  cfg.RateLimit.Limit,
			Window: cfg.RateLimit.Window,
		})
	}

	readiness := healthcheck.Composite(
		healthcheck.MySQL(gormDB),
		healthcheck.Redis(redisClient),
	)

	router := handler.NewRouter(handler.RouterConfig{
		Catalog:               service.NewCatalogService(catalogRepo),
		Quotes:                service.NewQuoteService(catalogRepo, promocodeRepo, clock),
		Promocodes:            service.NewPromocodeService(promocodeRepo, clock),
		Checkout:              checkoutSvc,
		Reconciliation:        reconSvc,
		Webhooks:              bot,
		Tasks:                 queue,
		Tokens:                tokens,
		AuthMW:                authMW,
		RateLimitMW:           rateLimitMW,
		IdempotencyMW:         middleware.NewIdempotencyMiddleware(middleware.IdempotencyConfig{Redis: redisClient}),
		TracingMW:             middleware.NewTracingMiddleware(log),
		AllowedOrigins:        cfg.HTTP.AllowedOrigins,
		ClientBaseURL:         cfg.Client.BaseURL,
		TelegramWebhookURL:    cfg.Telegram.WebhookURL,
		TelegramWebhookSecret: cfg.Telegram.WebhookSecret,
		ReadinessCheck:        handler.ReadinessChecker(readiness),
		Debug:                 cfg.IsDevelopment(),
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), serviceName,
			metrics.WithReadinessCheck(metrics.ReadinessChecker(readiness)))
		go func() {
			if err := metricsServer.Start(); err != nil {
				log.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP сервер запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Ошибка HTTP сервера")
			stop()
		}
	}()

	// === Graceful Shutdown ===

	<-ctx.Done()
	log.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Ошибка при остановке сервера")
	}

	// очередь дорабатывает поставленные задачи, затем закрывает канал ошибок
	queue.Wait()
	background.Wait()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	log.Info().Msg("Магазин остановлен")
}

func setupWebhook(ctx context.Context, log zerolog.Logger, bot notify.WebhookManager, url string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := bot.SetupWebhook(ctx, url)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("Не удалось установить webhook Telegram")
		return
	}
	log.Info().
		Str("url", info.URL).
		Int("pending_updates", info.PendingUpdateCount).
		Str("last_error", info.LastErrorMessage).
		Msg("Webhook Telegram установлен")
}

// rejectAll закрывает операторские маршруты, когда ключи JWT не настроены.
type rejectAll struct{}

func (rejectAll) ValidateWithBlacklist(context.Context, string) (*jwt.Claims, error) {
	return nil, jwt.ErrInvalidToken
}

func (rejectAll) Revoke(context.Context, *jwt.Claims) error {
	return jwt.ErrInvalidToken
}
