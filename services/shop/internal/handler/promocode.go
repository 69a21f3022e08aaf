package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/services/shop/internal/service"
)

// PromocodeHandler — проверка промокодов.
type PromocodeHandler struct {
	promocodes service.PromocodeService
}

// NewPromocodeHandler создаёт обработчик промокодов.
func NewPromocodeHandler(promocodes service.PromocodeService) *PromocodeHandler {
	return &PromocodeHandler{promocodes: promocodes}
}

// PromocodeData — сведения о действующем промокоде.
type PromocodeData struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	PercentDiscount float64 `json:"percentDiscount"`
	AvailableUsages int     `json:"availableUsages"`
	CurrentUsages   int     `json:"currentUsages"`
	RemainingUsages int     `json:"remainingUsages"`
}

// Validate обрабатывает POST /promocodes/validate.
func (h *PromocodeHandler) Validate(c *gin.Context) {
	var req PromocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Некорректный формат запроса")
		return
	}

	res, err := h.promocodes.Validate(c.Request.Context(), req.Name)
	if err != nil {
		HandleError(c, err, "ValidatePromocode")
		return
	}

	if !res.Valid {
		c.JSON(http.StatusOK, gin.H{"valid": false, "message": res.Message})
		return
	}

	p := res.Promocode
	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"message": res.Message,
		"data": PromocodeData{
			Name:            p.Name,
			Type:            string(p.Type),
			PercentDiscount: p.PercentDiscount.InexactFloat64(),
			AvailableUsages: p.AvailableUsages,
			CurrentUsages:   p.UsageCount,
			RemainingUsages: res.RemainingUsages(),
		},
	})
}
