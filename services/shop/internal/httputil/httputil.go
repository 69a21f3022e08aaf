// Package httputil содержит вспомогательные функции для HTTP обработки.
package httputil

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Ключи gin.Context, которые заполняют middleware.
const (
	KeyOperatorID = "operator_id"
	KeyClaims     = "claims"
	KeyTraceID    = "trace_id"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Abort прерывает обработку и отвечает JSON с ошибкой.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// ExtractBearerToken извлекает токен из Authorization header.
// Формат: "Bearer <token>", префикс регистронезависимый.
func ExtractBearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
