package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

// Recovery перехватывает панику в обработчике, логирует stack trace
// и отвечает 500 без деталей.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log := logger.FromContext(c.Request.Context())
				log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Str("stack", string(debug.Stack())).
					Msg("Перехвачена паника в HTTP обработчике")

				httputil.Abort(c, http.StatusInternalServerError, "internal_error", "Внутренняя ошибка сервера")
			}
		}()

		c.Next()
	}
}
