package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "ошибка валидации",
			err:             fmt.Errorf("ошибка оформления: %w", domain.NewValidationError("phone", "обязательное поле")),
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "validation_error",
			expectedMessage: domain.NewValidationError("phone", "обязательное поле").Error(),
		},
		{
			name:            "товар не найден",
			err:             &domain.ProductError{Ref: domain.ProductRefBySlug("ghost"), Err: domain.ErrProductNotFound},
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "товар не найден: ghost",
		},
		{
			name:            "товар скрыт",
			err:             &domain.ProductError{Ref: domain.ProductRefBySlug("ring"), Err: domain.ErrProductNotOrderable},
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "invalid_request",
			expectedMessage: (&domain.ProductError{Ref: domain.ProductRefBySlug("ring"), Err: domain.ErrProductNotOrderable}).Error(),
		},
		{
			name:            "пустая корзина",
			err:             fmt.Errorf("ошибка расчёта: %w", domain.ErrEmptyCart),
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "invalid_request",
			expectedMessage: domain.ErrEmptyCart.Error(),
		},
		{
			name:            "заказ не найден",
			err:             fmt.Errorf("ошибка поиска: %w", domain.ErrOrderNotFound),
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: domain.ErrOrderNotFound.Error(),
		},
		{
			name:            "недопустимый переход",
			err:             fmt.Errorf("платёж 1: %w", domain.ErrInvalidTransition),
			expectedStatus:  http.StatusConflict,
			expectedError:   "invalid_transition",
			expectedMessage: domain.ErrInvalidTransition.Error(),
		},
		{
			name:           "ошибка шлюза",
			err:            &domain.GatewayError{Code: "5", Message: "Access denied"},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "gateway_error",
		},
		{
			name:            "шлюз недоступен",
			err:             fmt.Errorf("регистрация: %w", domain.ErrGatewayUnavailable),
			expectedStatus:  http.StatusServiceUnavailable,
			expectedError:   "gateway_unavailable",
			expectedMessage: domain.ErrGatewayUnavailable.Error(),
		},
		{
			name:            "внутренняя ошибка не раскрывается",
			err:             errors.New("dial tcp 10.0.0.1:3306: connection refused"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "Внутренняя ошибка сервера",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tt.err, "Test")

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeJSON[ErrorResponse](t, w)
			assert.Equal(t, tt.expectedError, resp.Error)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, resp.Message)
			}
		})
	}
}

func TestHandleError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, nil, "Test")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
