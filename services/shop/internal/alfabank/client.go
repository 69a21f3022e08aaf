// Package alfabank регистрирует заказы в платёжном шлюзе Альфа-Банка (register.do).
package alfabank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/jewelry-shop/pkg/circuitbreaker"
	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/services/shop/internal/domain"
)

const maxResponseBytes = 1 << 20

// RegisterRequest — данные для регистрации заказа в шлюзе.
type RegisterRequest struct {
	OrderID     domain.OrderID
	Amount      decimal.Decimal
	Description string
}

// RegisterResponse — ответ шлюза: идентификатор заказа в банке и ссылка на форму оплаты.
type RegisterResponse struct {
	OrderID string
	FormURL string
}

// registerResponse — тело ответа register.do.
type registerResponse struct {
	OrderID      string          `json:"orderId"`
	FormURL      string          `json:"formUrl"`
	ErrorCode    json.RawMessage `json:"errorCode"`
	ErrorMessage string          `json:"errorMessage"`
}

// Client — клиент платёжного шлюза.
type Client struct {
	baseURL    string
	username   string
	password   string
	returnURL  string
	failureURL string
	offset     uint64
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

// Option — функциональная опция клиента.
type Option func(*Client)

// WithHTTPClient задаёт HTTP клиент.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBreaker задаёт Circuit Breaker.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

// NewClient создаёт клиент из конфигурации.
func NewClient(cfg config.AlfaBankConfig, opts ...Option) *Client {
	baseURL := cfg.PaymentURL
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	c := &Client{
		baseURL:    baseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		returnURL:  cfg.ReturnURL,
		failureURL: cfg.FailureURL,
		offset:     cfg.OrderOffset,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.NewWithSettings("alfabank", gatewaySettings())
	}
	return c
}

// gatewaySettings не считает отказ банка по бизнес-причине сбоем соединения.
func gatewaySettings() circuitbreaker.Settings {
	s := circuitbreaker.DefaultSettings()
	s.IsFailure = func(err error) bool {
		var gwErr *domain.GatewayError
		if errors.As(err, &gwErr) && gwErr.Code != "" {
			return false
		}
		return !errors.Is(err, context.Canceled)
	}
	return s
}

// OrderNumber возвращает номер заказа для шлюза.
func (c *Client) OrderNumber(id domain.OrderID) uint64 {
	return uint64(id) + c.offset
}

// OrderIDFromGateway восстанавливает id заказа по номеру из шлюза.
func (c *Client) OrderIDFromGateway(orderNumber string) (domain.OrderID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(orderNumber), 10, 64)
	if err != nil || n <= c.offset {
		return 0, fmt.Errorf("некорректный номер заказа шлюза %q", orderNumber)
	}
	return domain.OrderID(n - c.offset), nil
}

// Register регистрирует заказ и возвращает ссылку на оплату.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	log := logger.FromContext(ctx).With().
		Uint64("order_id", uint64(req.OrderID)).
		Logger()

	start := time.Now()
	var resp *RegisterResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.register(ctx, req)
		return callErr
	})
	metrics.RecordGateway(err, time.Since(start))

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrUnavailable) {
			return nil, domain.ErrGatewayUnavailable
		}
		log.Error().Err(err).Msg("Ошибка регистрации заказа в платёжном шлюзе")
		return nil, err
	}

	log.Info().Str("hash_id", resp.OrderID).Msg("Заказ зарегистрирован в платёжном шлюзе")
	return resp, nil
}

func (c *Client) register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	q := url.Values{}
	q.Set("amount", strconv.FormatInt(domain.MinorUnits(req.Amount), 10))
	q.Set("userName", c.username)
	q.Set("password", c.password)
	q.Set("orderNumber", strconv.FormatUint(c.OrderNumber(req.OrderID), 10))
	q.Set("returnUrl", c.returnURL)
	q.Set("failUrl", c.failureURL)
	q.Set("language", "ru")
	if req.Description != "" {
		q.Set("description", req.Description)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"register.do?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса к шлюзу: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к шлюзу: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа шлюза: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &domain.GatewayError{Message: fmt.Sprintf("HTTP %d", httpResp.StatusCode)}
	}

	var parsed registerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &domain.GatewayError{Message: "некорректный ответ шлюза"}
	}

	if code := errorCode(parsed.ErrorCode); code != "" && code != "0" {
		msg := parsed.ErrorMessage
		if msg == "" {
			msg = "шлюз отклонил регистрацию заказа"
		}
		return nil, &domain.GatewayError{Code: code, Message: msg}
	}

	if parsed.OrderID == "" || parsed.FormURL == "" {
		return nil, &domain.GatewayError{Message: "в ответе шлюза нет orderId или formUrl"}
	}

	return &RegisterResponse{OrderID: parsed.OrderID, FormURL: parsed.FormURL}, nil
}

// errorCode приводит errorCode к строке: шлюз присылает его и числом, и строкой.
func errorCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}
