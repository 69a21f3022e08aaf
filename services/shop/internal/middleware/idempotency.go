package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

// HeaderIdempotencyKey — ключ идемпотентности запроса.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplay выставляется на ответах, взятых из кеша.
const HeaderIdempotentReplay = "Idempotent-Replayed"

const (
	stateProcessing = "processing"
	stateCompleted  = "completed"

	maxIdempotencyKeyLen = 255
)

// IdempotencyConfig — конфигурация middleware идемпотентности.
type IdempotencyConfig struct {
	Redis redis.UniversalClient
	// TTL — сколько хранится успешный ответ. По умолчанию 24 часа.
	TTL time.Duration
	// LockTTL — сколько держится отметка о запросе в работе. По умолчанию 1 минута.
	LockTTL time.Duration
}

// IdempotencyMiddleware кеширует успешные ответы по заголовку Idempotency-Key.
// Повтор с тем же ключом получает сохранённый ответ, параллельный дубль — 409.
// Запросы без заголовка не затрагиваются.
type IdempotencyMiddleware struct {
	redis   redis.UniversalClient
	ttl     time.Duration
	lockTTL time.Duration
}

// NewIdempotencyMiddleware создаёт middleware идемпотентности.
func NewIdempotencyMiddleware(cfg IdempotencyConfig) *IdempotencyMiddleware {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &IdempotencyMiddleware{redis: cfg.Redis, ttl: cfg.TTL, lockTTL: cfg.LockTTL}
}

type idempotencyRecord struct {
	State       string `json:"state"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// bodyWriter дублирует тело ответа в буфер.
type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Handle возвращает Gin handler function для middleware.
func (m *IdempotencyMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := logger.FromContext(ctx).With().Str("idempotency_key", key).Logger()

		if len(key) > maxIdempotencyKeyLen {
			httputil.Abort(c, http.StatusBadRequest, "validation_error", "Слишком длинный Idempotency-Key")
			return
		}

		redisKey := "idem:" + c.FullPath() + ":" + key
		processing, _ := json.Marshal(idempotencyRecord{State: stateProcessing})

		acquired, err := m.redis.SetNX(ctx, redisKey, processing, m.lockTTL).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка проверки идемпотентности, запрос выполняется без кеша")
			c.Next()
			return
		}

		if !acquired {
			m.replay(c, redisKey, log)
			return
		}

		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		// ключ хранится только для успешного ответа, иначе клиент может повторить запрос
		status := w.Status()
		store := context.WithoutCancel(ctx)
		if status < 200 || status >= 300 {
			if err := m.redis.Del(store, redisKey).Err(); err != nil {
				log.Warn().Err(err).Msg("Не удалось снять отметку идемпотентности")
			}
			return
		}

		record, err := json.Marshal(idempotencyRecord{
			State:       stateCompleted,
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.buf.Bytes(),
		})
		if err == nil {
			err = m.redis.Set(store, redisKey, record, m.ttl).Err()
		}
		if err != nil {
			log.Warn().Err(err).Msg("Не удалось сохранить ответ для идемпотентности")
		}
	}
}

func (m *IdempotencyMiddleware) replay(c *gin.Context, redisKey string, log zerolog.Logger) {
	raw, err := m.redis.Get(c.Request.Context(), redisKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// отметка истекла между SETNX и GET
			httputil.Abort(c, http.StatusConflict, "conflict", "Запрос с этим ключом уже выполняется")
			return
		}
		log.Warn().Err(err).Msg("Ошибка чтения сохранённого ответа")
		httputil.Abort(c, http.StatusServiceUnavailable, "unavailable", "Повторите запрос позже")
		return
	}

	var record idempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil || record.State != stateCompleted {
		log.Info().Msg("Параллельный запрос с тем же ключом")
		httputil.Abort(c, http.StatusConflict, "conflict", "Запрос с этим ключом уже выполняется")
		return
	}

	log.Info().Msg("Возвращён сохранённый ответ")
	c.Header(HeaderIdempotentReplay, "true")
	c.Data(record.Status, record.ContentType, record.Body)
	c.Abort()
}
