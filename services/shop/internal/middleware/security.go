package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// apiContentPolicy — ответы сервиса не содержат HTML и не встраиваются в страницы.
const apiContentPolicy = "default-src 'none'; frame-ancestors 'none'"

// hstsMaxAge — год.
const hstsMaxAge = "max-age=31536000"

// SecurityHeaders выставляет заголовки для JSON API и редиректов на витрину.
// Ссылка оплаты и hash заказа передаются в query, поэтому Referer не отправляется.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("Content-Security-Policy", apiContentPolicy)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		if isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsMaxAge)
		}

		c.Next()
	}
}

// isHTTPS учитывает TLS-терминацию на балансировщике.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
