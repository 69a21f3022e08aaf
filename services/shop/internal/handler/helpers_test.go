package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/services/shop/internal/middleware"
)

const operatorToken = "operator-token"

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestRouter собирает роутер с моками. mutate подменяет нужные зависимости.
func setupTestRouter(mutate func(cfg *RouterConfig)) *gin.Engine {
	cfg := RouterConfig{
		Catalog:        &MockCatalogService{},
		Quotes:         &MockQuoteService{},
		Promocodes:     &MockPromocodeService{},
		Checkout:       &MockCheckoutService{},
		Reconciliation: &MockReconciliationService{},
		Webhooks:       &MockWebhookManager{},
		Tasks:          &MockTaskQueue{},
		Tokens:         &MockTokenRevoker{},
		AuthMW: middleware.NewAuthMiddleware(&MockTokenValidator{
			ValidateFunc: func(_ context.Context, token string) (*jwt.Claims, error) {
				if token != operatorToken {
					return nil, jwt.ErrInvalidToken
				}
				return &jwt.Claims{OperatorID: "op-1", Role: jwt.RoleOperator}, nil
			},
		}),
		ClientBaseURL: "https://shop.example/",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewRouter(cfg).Engine()
}

// doRequest выполняет запрос. body сериализуется в JSON, если это не строка.
func doRequest(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func operatorHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + operatorToken}
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}
