package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/httputil"
	"example.com/jewelry-shop/services/shop/internal/service"
)

// AdminHandler — операции операторов магазина.
type AdminHandler struct {
	recon  service.ReconciliationService
	tokens TokenRevoker
}

// NewAdminHandler создаёт обработчик операций операторов.
func NewAdminHandler(recon service.ReconciliationService, tokens TokenRevoker) *AdminHandler {
	return &AdminHandler{recon: recon, tokens: tokens}
}

// UpdatePaymentStatus обрабатывает PATCH /admin/orders/:id/payment-status.
func (h *AdminHandler) UpdatePaymentStatus(c *gin.Context) {
	orderID, err := domain.ParseOrderID(c.Param("id"))
	if err != nil {
		HandleError(c, err, "UpdatePaymentStatus")
		return
	}

	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Некорректный формат запроса")
		return
	}

	outcome, err := domain.ParseOutcome(req.Status)
	if err != nil {
		HandleError(c, err, "UpdatePaymentStatus")
		return
	}

	result, err := h.recon.ApplyByOrderID(c.Request.Context(), orderID, outcome)
	if err != nil {
		HandleError(c, err, "UpdatePaymentStatus")
		return
	}

	log := logger.FromContext(c.Request.Context())

	log.Info().
		Str("operator_id", c.GetString(httputil.KeyOperatorID)).
		Uint64("order_id", uint64(orderID)).
		Str("outcome", string(outcome)).
		Bool("changed", result.Changed).
		Msg("Статус оплаты изменён оператором")

	c.JSON(http.StatusOK, toPaymentStatusResponse(result))
}

// RevokeToken обрабатывает POST /admin/tokens/revoke: отзывает текущий токен.
func (h *AdminHandler) RevokeToken(c *gin.Context) {
	value, ok := c.Get(httputil.KeyClaims)
	claims, _ := value.(*jwt.Claims)
	if !ok || claims == nil {
		httputil.Abort(c, http.StatusUnauthorized, "unauthorized", "Требуется авторизация")
		return
	}

	if err := h.tokens.Revoke(c.Request.Context(), claims); err != nil {
		HandleError(c, err, "RevokeToken")
		return
	}

	c.Status(http.StatusNoContent)
}
