// Package handler содержит HTTP обработчики магазина.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse = httputil.ErrorResponse

// errorStatus сопоставляет ошибку с HTTP статусом и кодом ответа.
func errorStatus(err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		productErr    *domain.ProductError
		gatewayErr    *domain.GatewayError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound, "not_found"
	case errors.As(err, &productErr),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidShippingType),
		errors.Is(err, domain.ErrInvalidProductRef),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidPaymentMethod):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, "gateway_unavailable"
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway, "gateway_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorMessage возвращает текст для клиента. Детали внутренних ошибок не раскрываются.
func errorMessage(err error, status int) string {
	var (
		validationErr *domain.ValidationError
		productErr    *domain.ProductError
		gatewayErr    *domain.GatewayError
	)

	switch {
	case status == http.StatusInternalServerError:
		return "Внутренняя ошибка сервера"
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &productErr):
		return productErr.Error()
	case errors.As(err, &gatewayErr):
		return gatewayErr.Error()
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return domain.ErrGatewayUnavailable.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return domain.ErrInvalidTransition.Error()
	default:
		return rootMessage(err)
	}
}

// rootMessage возвращает текст доменной ошибки без префиксов обёрток.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrProductNotFound, domain.ErrOrderNotFound, domain.ErrPaymentNotFound,
		domain.ErrEmptyCart, domain.ErrInvalidQuantity, domain.ErrInvalidShippingType,
		domain.ErrInvalidProductRef, domain.ErrInvalidOutcome, domain.ErrInvalidPaymentMethod,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// HandleError преобразует ошибку сервиса в HTTP ответ.
func HandleError(c *gin.Context, err error, method string) {
	log := logger.FromContext(c.Request.Context())

	if err == nil {
		log.Error().Str("method", method).Msg("HandleError вызван с nil ошибкой")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", method).Int("status", status).Msg("Ошибка обработки запроса")
	} else {
		log.Debug().Err(err).Str("method", method).Int("status", status).Msg("Запрос отклонён")
	}

	c.JSON(status, ErrorResponse{Error: code, Message: errorMessage(err, status)})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: message})
}
