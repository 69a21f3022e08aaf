// Package middleware содержит HTTP middleware магазина.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

// HeaderTelegramSecret — заголовок, которым Telegram подписывает вызовы webhook.
const HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"

// TokenValidator проверяет токены операторов.
type TokenValidator interface {
	ValidateWithBlacklist(ctx context.Context, token string) (*jwt.Claims, error)
}

// AuthMiddleware пропускает только операторов с действующим токеном.
// Проверка подписи и срока выполняется локально, отзыв — по blacklist в Redis.
type AuthMiddleware struct {
	tokens TokenValidator
}

// NewAuthMiddleware создаёт middleware аутентификации операторов.
func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle возвращает Gin handler function для middleware.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		token := httputil.ExtractBearerToken(c)
		if token == "" {
			log.Debug().Msg("Отсутствует токен авторизации")
			httputil.Abort(c, http.StatusUnauthorized, "unauthorized", "Требуется авторизация")
			return
		}

		claims, err := m.tokens.ValidateWithBlacklist(ctx, token)
		if err != nil {
			msg := "Невалидный токен"
			if errors.Is(err, jwt.ErrTokenRevoked) {
				msg = "Токен отозван"
			}
			log.Warn().Err(err).Msg("Ошибка валидации токена")
			httputil.Abort(c, http.StatusUnauthorized, "unauthorized", msg)
			return
		}

		if claims.Role != jwt.RoleOperator {
			log.Warn().Str("role", claims.Role).Msg("Недостаточно прав")
			httputil.Abort(c, http.StatusForbidden, "forbidden", "Недостаточно прав")
			return
		}

		c.Set(httputil.KeyOperatorID, claims.OperatorID)
		c.Set(httputil.KeyClaims, claims)

		log.Debug().
			Str("operator_id", claims.OperatorID).
			Str("jti", claims.ID).
			Msg("Оператор аутентифицирован")

		c.Next()
	}
}

// TelegramSecret проверяет секрет webhook. Пустой secret отключает проверку.
func TelegramSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		got := c.GetHeader(HeaderTelegramSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			log := logger.FromContext(c.Request.Context())
			log.Warn().
				Str("client_ip", c.ClientIP()).
				Msg("Неверный секрет Telegram webhook")
			httputil.Abort(c, http.StatusUnauthorized, "unauthorized", "Неверный секрет")
			return
		}

		c.Next()
	}
}
