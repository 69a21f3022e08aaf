package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/service"
)

// OrderHandler — расчёт стоимости корзины.
type OrderHandler struct {
	quotes service.QuoteService
}

// NewOrderHandler создаёт обработчик расчёта стоимости.
func NewOrderHandler(quotes service.QuoteService) *OrderHandler {
	return &OrderHandler{quotes: quotes}
}

// CalculatePrice обрабатывает POST /orders/calculate-price. Ничего не сохраняет.
func (h *OrderHandler) CalculatePrice(c *gin.Context) {
	var req CalculatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Некорректный формат запроса")
		return
	}

	lines, err := toCartLines(req.Products)
	if err != nil {
		HandleError(c, err, "CalculatePrice")
		return
	}

	shippingType, err := domain.ParseShippingType(req.Type)
	if err != nil {
		HandleError(c, err, "CalculatePrice")
		return
	}

	breakdown, err := h.quotes.Calculate(c.Request.Context(), service.QuoteInput{
		Lines:         lines,
		ShippingType:  shippingType,
		PromocodeName: req.Promocode,
	})
	if err != nil {
		HandleError(c, err, "CalculatePrice")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toPriceResponse(breakdown),
	})
}
