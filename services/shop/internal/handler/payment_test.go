package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/middleware"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/service"
	"example.com/jewelry-shop/services/shop/internal/worker"
)

func validInitiateRequest() InitiatePaymentRequest {
	return InitiatePaymentRequest{
		Products: []CartLineRequest{{ProductSlug: "ring", Quantity: 1}},
		Address: AddressRequest{
			Type:         "shipping",
			IsIndividual: true,
			FullName:     "Иван Иванов",
			Email:        "ivan@example.com",
			Phone:        "+375291234567",
			City:         "Минск",
			Address:      "ул. Ленина, 1",
		},
		PaymentMethod: "card",
		Promocode:     "SALE10",
	}
}

// =====================================
// Тесты Initiate
// =====================================

func TestInitiate_Card(t *testing.T) {
	checkout := &MockCheckoutService{
		InitiateFunc: func(_ context.Context, in service.CheckoutInput) (*service.CheckoutResult, error) {
			assert.Equal(t, domain.PaymentMethodCard, in.PaymentMethod)
			assert.Equal(t, domain.ShippingTypeShipping, in.ShippingType)
			assert.True(t, in.Address.IsIndividual)
			assert.Equal(t, "SALE10", in.PromocodeName)

			b, err := pricing.Compute([]pricing.Line{
				{Ref: domain.ProductRefBySlug("ring"), Title: "Кольцо", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
			}, in.ShippingType, nil, testNow)
			require.NoError(t, err)

			return &service.CheckoutResult{
				Order:     &domain.Order{ID: 42, OrderNumber: "1772366400000"},
				Breakdown: b,
				Payment:   &service.PaymentResult{GatewayRef: "gw-1", PaymentLink: "https://pay.example/form/gw-1"},
			}, nil
		},
	}
	router := setupTestRouter(func(cfg *RouterConfig) { cfg.Checkout = checkout })

	w := doRequest(t, router, http.MethodPost, "/payments/initiate", validInitiateRequest(), nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeJSON[InitiatePaymentResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(42), resp.OrderID)
	assert.Equal(t, "1772366400000", resp.OrderNumber)
	assert.Equal(t, "gw-1", resp.HashID)
	assert.Equal(t, "https://pay.example/form/gw-1", resp.PaymentLink)
	assert.Equal(t, 120.0, resp.Price.TotalAmount)
}

func TestInitiate_Errors(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(r *InitiatePaymentRequest)
		checkoutErr    error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "неизвестный способ оплаты",
			mutate:         func(r *InitiatePaymentRequest) { r.PaymentMethod = "cash" },
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_request",
		},
		{
			name:           "неизвестный тип доставки",
			mutate:         func(r *InitiatePaymentRequest) { r.Address.Type = "courier" },
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_request",
		},
		{
			name:           "не заполнено поле",
			checkoutErr:    domain.NewValidationError("phone", "обязательное поле"),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_error",
		},
		{
			name:           "шлюз недоступен",
			checkoutErr:    domain.ErrGatewayUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "gateway_unavailable",
		},
		{
			name:           "шлюз отказал",
			checkoutErr:    &domain.GatewayError{Code: "1", Message: "Заказ уже обработан"},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "gateway_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			router := setupTestRouter(func(cfg *RouterConfig) {
				cfg.Checkout = &MockCheckoutService{
					InitiateFunc: func(context.Context, service.CheckoutInput) (*service.CheckoutResult, error) {
						called = true
						return nil, tt.checkoutErr
					},
				}
			})

			req := validInitiateRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			w := doRequest(t, router, http.MethodPost, "/payments/initiate", req, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, decodeJSON[ErrorResponse](t, w).Error)
			assert.Equal(t, tt.checkoutErr != nil, called)
		})
	}
}

func TestInitiate_IdempotencyKey(t *testing.T) {
	redisClient := newTestRedis(t)

	calls := 0
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.IdempotencyMW = middleware.NewIdempotencyMiddleware(middleware.IdempotencyConfig{Redis: redisClient})
		cfg.Checkout = &MockCheckoutService{
			InitiateFunc: func(context.Context, service.CheckoutInput) (*service.CheckoutResult, error) {
				calls++
				return &service.CheckoutResult{
					Order:   &domain.Order{ID: 42, OrderNumber: "1"},
					Payment: &service.PaymentResult{},
				}, nil
			},
		}
	})

	headers := map[string]string{middleware.HeaderIdempotencyKey: "checkout-1"}
	first := doRequest(t, router, http.MethodPost, "/payments/initiate", validInitiateRequest(), headers)
	second := doRequest(t, router, http.MethodPost, "/payments/initiate", validInitiateRequest(), headers)

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(middleware.HeaderIdempotentReplay))
	assert.Equal(t, 1, calls, "повтор не оформляет заказ заново")
}

// =====================================
// Тесты редиректов банка
// =====================================

func TestPaymentRedirects(t *testing.T) {
	tests := []struct {
		name            string
		path            string
		applyErr        error
		expectedOutcome domain.PaymentOutcome
		expectedPath    string
		expectedQuery   url.Values
	}{
		{
			name:            "успешная оплата",
			path:            "/payments/success?orderId=gw-1",
			expectedOutcome: domain.OutcomeSuccess,
			expectedPath:    "/payment-success",
			expectedQuery:   url.Values{"orderId": {"gw-1"}},
		},
		{
			name:            "отказ",
			path:            "/payments/failure?orderId=gw-1",
			expectedOutcome: domain.OutcomeDeclined,
			expectedPath:    "/payment-failure",
			expectedQuery:   url.Values{"orderId": {"gw-1"}},
		},
		{
			name:            "платёж не найден",
			path:            "/payments/success?orderId=gw-1",
			applyErr:        domain.ErrPaymentNotFound,
			expectedOutcome: domain.OutcomeSuccess,
			expectedPath:    "/payment-error",
			expectedQuery:   url.Values{"message": {domain.ErrPaymentNotFound.Error()}},
		},
		{
			name:            "внутренняя ошибка",
			path:            "/payments/failure?orderId=gw-1",
			applyErr:        errors.New("db down"),
			expectedOutcome: domain.OutcomeDeclined,
			expectedPath:    "/payment-error",
			expectedQuery:   url.Values{"message": {"Внутренняя ошибка сервера"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(func(cfg *RouterConfig) {
				cfg.Reconciliation = &MockReconciliationService{
					ApplyByHashIDFunc: func(_ context.Context, hashID string, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error) {
						assert.Equal(t, "gw-1", hashID)
						assert.Equal(t, tt.expectedOutcome, outcome)
						return &service.ReconciliationResult{Changed: true}, tt.applyErr
					},
				}
			})

			w := doRequest(t, router, http.MethodGet, tt.path, nil, nil)

			require.Equal(t, http.StatusFound, w.Code)
			location, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "shop.example", location.Host)
			assert.Equal(t, tt.expectedPath, location.Path)
			assert.Equal(t, tt.expectedQuery, location.Query())
		})
	}
}

func TestPaymentRedirect_MissingOrderID(t *testing.T) {
	router := setupTestRouter(nil)

	w := doRequest(t, router, http.MethodGet, "/payments/success", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// =====================================
// Тесты Telegram webhook
// =====================================

const callbackUpdate = `{
	"update_id": 1001,
	"callback_query": {
		"id": "cb-1",
		"from": {"id": 1, "is_bot": false, "first_name": "Оператор"},
		"chat_instance": "1",
		"data": "success:42"
	}
}`

func TestTelegramCallback_Enqueued(t *testing.T) {
	var handled service.TelegramCallback
	var taskName string

	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Reconciliation = &MockReconciliationService{
			HandleTelegramCallbackFunc: func(_ context.Context, cb service.TelegramCallback) error {
				handled = cb
				return nil
			},
		}
		cfg.Tasks = &MockTaskQueue{
			EnqueueFunc: func(ctx context.Context, name string, fn worker.Func) (string, error) {
				taskName = name
				return "task-1", fn(ctx)
			},
		}
	})

	w := doRequest(t, router, http.MethodPost, "/payments/telegram-callback", callbackUpdate, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "telegram_callback", taskName)
	assert.Equal(t, service.TelegramCallback{UpdateID: 1001, CallbackID: "cb-1", Data: "success:42"}, handled)
}

func TestTelegramCallback_NotCallbackIgnored(t *testing.T) {
	enqueued := false
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Tasks = &MockTaskQueue{
			EnqueueFunc: func(context.Context, string, worker.Func) (string, error) {
				enqueued = true
				return "", nil
			},
		}
	})

	w := doRequest(t, router, http.MethodPost, "/payments/telegram-callback",
		`{"update_id": 1002, "message": {"message_id": 1, "date": 0, "chat": {"id": 1, "type": "private"}, "text": "hi"}}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, enqueued)
}

func TestTelegramCallback_QueueFull(t *testing.T) {
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Tasks = &MockTaskQueue{
			EnqueueFunc: func(context.Context, string, worker.Func) (string, error) {
				return "", worker.ErrQueueFull
			},
		}
	})

	w := doRequest(t, router, http.MethodPost, "/payments/telegram-callback", callbackUpdate, nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTelegramCallback_Secret(t *testing.T) {
	router := setupTestRouter(func(cfg *RouterConfig) { cfg.TelegramWebhookSecret = "s3cret" })

	w := doRequest(t, router, http.MethodPost, "/payments/telegram-callback", callbackUpdate, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, router, http.MethodPost, "/payments/telegram-callback", callbackUpdate,
		map[string]string{middleware.HeaderTelegramSecret: "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupTelegramWebhook(t *testing.T) {
	var registered string
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.TelegramWebhookURL = "https://api.shop.example/payments/telegram-callback"
		cfg.Webhooks = &MockWebhookManager{
			SetupWebhookFunc: func(_ context.Context, u string) (*notify.WebhookInfo, error) {
				registered = u
				return &notify.WebhookInfo{URL: u}, nil
			},
		}
	})

	t.Run("без токена", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/payments/setup-telegram-webhook", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("адрес из конфигурации", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/payments/setup-telegram-webhook", nil, operatorHeaders())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://api.shop.example/payments/telegram-callback", registered)
	})

	t.Run("адрес из запроса", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet,
			"/payments/setup-telegram-webhook?url="+url.QueryEscape("https://tunnel.example/cb"), nil, operatorHeaders())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "https://tunnel.example/cb", registered)
	})
}

func TestSetupTelegramWebhook_Errors(t *testing.T) {
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Webhooks = &MockWebhookManager{
			SetupWebhookFunc: func(context.Context, string) (*notify.WebhookInfo, error) {
				return nil, errors.New("telegram: Unauthorized")
			},
		}
	})

	w := doRequest(t, router, http.MethodGet, "/payments/setup-telegram-webhook", nil, operatorHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code, "адрес не задан")

	w = doRequest(t, router, http.MethodGet, "/payments/setup-telegram-webhook?url=https://x.example", nil, operatorHeaders())
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
