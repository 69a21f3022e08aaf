package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

// Счётчик в фиксированном окне: INCR и EXPIRE выполняются атомарно.
var rateLimitScript = redis.NewScript(`
	local current = redis.call("INCR", KEYS[1])
	if current == 1 then
		redis.call("EXPIRE", KEYS[1], ARGV[1])
	end
	return current
`)

// RateLimitConfig — конфигурация rate limiter.
type RateLimitConfig struct {
	Redis  redis.UniversalClient
	Limit  int           // по умолчанию 100
	Window time.Duration // по умолчанию 1 минута
	Prefix string        // по умолчанию "rate"
}

// RateLimitMiddleware ограничивает число запросов с одного IP.
// При недоступности Redis запросы пропускаются.
type RateLimitMiddleware struct {
	redis  redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimitMiddleware создаёт middleware ограничения запросов.
func NewRateLimitMiddleware(cfg RateLimitConfig) *RateLimitMiddleware {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rate"
	}
	return &RateLimitMiddleware{
		redis:  cfg.Redis,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix,
	}
}

// Handle возвращает Gin handler function для middleware.
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		clientIP := c.ClientIP()
		key := fmt.Sprintf("%s:%s", m.prefix, clientIP)

		count, err := m.increment(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := max(m.limit-count, 0)
		windowSec := int(m.window.Seconds())

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(m.window).Unix(), 10))

		if count > m.limit {
			log.Warn().
				Str("client_ip", clientIP).
				Int("limit", m.limit).
				Msg("Rate limit превышен")

			c.Header("Retry-After", strconv.Itoa(windowSec))
			httputil.Abort(c, http.StatusTooManyRequests, "rate_limit_exceeded",
				fmt.Sprintf("Превышен лимит запросов. Попробуйте через %d секунд", windowSec))
			return
		}

		c.Next()
	}
}

func (m *RateLimitMiddleware) increment(ctx context.Context, key string) (int, error) {
	return rateLimitScript.Run(ctx, m.redis, []string{key}, int(m.window.Seconds())).Int()
}
