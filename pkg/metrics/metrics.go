// Package metrics предоставляет Prometheus метрики магазина и HTTP сервер
// для /metrics, /healthz и /readyz.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/jewelry-shop/pkg/logger"
)

var (
	// RequestsTotal — HTTP запросы по маршруту и результату.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_http_requests_total",
			Help: "Количество HTTP запросов по маршруту и статусу",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration — latency HTTP запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_http_request_duration_seconds",
			Help:    "Время обработки HTTP запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	// OrdersCreated — созданные заказы по способу доставки.
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_orders_created_total",
			Help: "Количество созданных заказов",
		},
		[]string{"shipping_type"},
	)

	// PaymentTransitions — применённые исходы оплаты.
	PaymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_payment_transitions_total",
			Help: "Переходы статуса платежа по исходу и источнику",
		},
		[]string{"outcome", "source"},
	)

	// GatewayDuration — время регистрации платежа в банке.
	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shop_gateway_request_duration_seconds",
			Help:    "Время запроса к платёжному шлюзу",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"result"},
	)

	// NotificationFailures — неудачные уведомления (не влияют на заказ).
	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_notification_failures_total",
			Help: "Ошибки доставки уведомлений по каналу",
		},
		[]string{"channel"},
	)

	// QueueDepth — задачи в фоновой очереди.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shop_task_queue_depth",
			Help: "Количество задач, ожидающих выполнения",
		},
	)
)

// ReadinessChecker возвращает nil, если сервис готов принимать трафик.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция для Server.
type Option func(*Server)

// WithReadinessCheck добавляет проверку готовности для /readyz.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт metrics server на addr.
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "alive")
	})
	mux.HandleFunc("/readyz", s.handleReady)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readinessCheck == nil {
		writeStatus(w, http.StatusOK, "ready")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.readinessCheck(ctx); err != nil {
		logger.Warn().Err(err).Str("service", s.service).Msg("Readiness check не пройден")
		writeStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}

	writeStatus(w, http.StatusOK, "ready")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

// Handler возвращает http.Handler сервера (для тестов).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start запускает сервер. Блокирующий вызов.
func (s *Server) Start() error {
	logger.Info().Str("service", s.service).Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// RecordRequest записывает метрики одного HTTP запроса.
func RecordRequest(route, method string, status int, duration time.Duration) {
	RequestsTotal.WithLabelValues(route, method, statusClass(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordGateway записывает длительность запроса к платёжному шлюзу.
func RecordGateway(err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	GatewayDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// GinMiddleware собирает метрики для каждого запроса. Неизвестные маршруты
// группируются под "unmatched", чтобы не раздувать кардинальность.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RecordRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
