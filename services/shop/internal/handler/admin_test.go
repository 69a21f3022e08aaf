package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/service"
)

func TestUpdatePaymentStatus(t *testing.T) {
	recon := &MockReconciliationService{
		ApplyByOrderIDFunc: func(_ context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*service.ReconciliationResult, error) {
			assert.Equal(t, domain.OrderID(42), orderID)
			assert.Equal(t, domain.OutcomeSuccess, outcome)
			return &service.ReconciliationResult{
				Order:   &domain.Order{ID: 42, Status: domain.OrderStatusSuccess},
				Payment: &domain.Payment{ID: 1, Status: domain.PaymentStatusSuccess},
				Outcome: outcome,
				Changed: true,
			}, nil
		},
	}
	router := setupTestRouter(func(cfg *RouterConfig) { cfg.Reconciliation = recon })

	w := doRequest(t, router, http.MethodPatch, "/admin/orders/42/payment-status",
		PaymentStatusRequest{Status: "success"}, operatorHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeJSON[PaymentStatusResponse](t, w)
	assert.Equal(t, "success", resp.OrderStatus)
	assert.Equal(t, "success", resp.PaymentStatus)
	assert.True(t, resp.Changed)
}

func TestUpdatePaymentStatus_Errors(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		headers        map[string]string
		applyErr       error
		expectedStatus int
	}{
		{
			name:           "без токена",
			path:           "/admin/orders/42/payment-status",
			body:           PaymentStatusRequest{Status: "success"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "чужой токен",
			path:           "/admin/orders/42/payment-status",
			body:           PaymentStatusRequest{Status: "success"},
			headers:        map[string]string{"Authorization": "Bearer forged"},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "некорректный id",
			path:           "/admin/orders/abc/payment-status",
			body:           PaymentStatusRequest{Status: "success"},
			headers:        operatorHeaders(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "нет статуса",
			path:           "/admin/orders/42/payment-status",
			body:           map[string]string{},
			headers:        operatorHeaders(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "неизвестный статус",
			path:           "/admin/orders/42/payment-status",
			body:           PaymentStatusRequest{Status: "paid"},
			headers:        operatorHeaders(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "заказ не найден",
			path:           "/admin/orders/42/payment-status",
			body:           PaymentStatusRequest{Status: "declined"},
			headers:        operatorHeaders(),
			applyErr:       domain.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "недопустимый переход",
			path:           "/admin/orders/42/payment-status",
			body:           PaymentStatusRequest{Status: "refunded"},
			headers:        operatorHeaders(),
			applyErr:       domain.ErrInvalidTransition,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(func(cfg *RouterConfig) {
				cfg.Reconciliation = &MockReconciliationService{
					ApplyByOrderIDFunc: func(context.Context, domain.OrderID, domain.PaymentOutcome) (*service.ReconciliationResult, error) {
						return nil, tt.applyErr
					},
				}
			})

			w := doRequest(t, router, http.MethodPatch, tt.path, tt.body, tt.headers)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestRevokeToken(t *testing.T) {
	var revoked *jwt.Claims
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Tokens = &MockTokenRevoker{
			RevokeFunc: func(_ context.Context, claims *jwt.Claims) error {
				revoked = claims
				return nil
			},
		}
	})

	w := doRequest(t, router, http.MethodPost, "/admin/tokens/revoke", nil, operatorHeaders())

	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, revoked)
	assert.Equal(t, "op-1", revoked.OperatorID)
}

func TestRevokeToken_Error(t *testing.T) {
	router := setupTestRouter(func(cfg *RouterConfig) {
		cfg.Tokens = &MockTokenRevoker{
			RevokeFunc: func(context.Context, *jwt.Claims) error { return errors.New("redis down") },
		}
	})

	w := doRequest(t, router, http.MethodPost, "/admin/tokens/revoke", nil, operatorHeaders())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
