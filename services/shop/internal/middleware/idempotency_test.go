package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idempotentRouter(mw *IdempotencyMiddleware, calls *atomic.Int32, status int) *gin.Engine {
	r := gin.New()
	r.POST("/payments/initiate", mw.Handle(), func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(status, gin.H{"success": status < 300, "call": n})
	})
	return r
}

func postWithKey(r http.Handler, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ReplaysSuccess(t *testing.T) {
	mr, client := newTestRedis(t)
	var calls atomic.Int32
	r := idempotentRouter(NewIdempotencyMiddleware(IdempotencyConfig{Redis: client}), &calls, http.StatusOK)

	first := postWithKey(r, "key-1")
	require.Equal(t, http.StatusOK, first.Code)

	second := postWithKey(r, "key-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.Contains(t, second.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, int32(1), calls.Load())

	ttl := mr.TTL("idem:/payments/initiate:key-1")
	assert.Equal(t, 24*time.Hour, ttl)

	// другой ключ выполняется заново
	postWithKey(r, "key-2")
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyMiddleware_WithoutKey(t *testing.T) {
	_, client := newTestRedis(t)
	var calls atomic.Int32
	r := idempotentRouter(NewIdempotencyMiddleware(IdempotencyConfig{Redis: client}), &calls, http.StatusOK)

	postWithKey(r, "")
	postWithKey(r, "")

	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyMiddleware_ConcurrentDuplicate(t *testing.T) {
	mr, client := newTestRedis(t)
	var calls atomic.Int32
	r := idempotentRouter(NewIdempotencyMiddleware(IdempotencyConfig{Redis: client}), &calls, http.StatusOK)

	// первый запрос ещё выполняется
	require.NoError(t, mr.Set("idem:/payments/initiate:key-1", `{"state":"processing"}`))

	w := postWithKey(r, "key-1")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(0), calls.Load())
}

func TestIdempotencyMiddleware_ErrorIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	var calls atomic.Int32
	r := idempotentRouter(NewIdempotencyMiddleware(IdempotencyConfig{Redis: client}), &calls, http.StatusBadGateway)

	assert.Equal(t, http.StatusBadGateway, postWithKey(r, "key-1").Code)
	assert.False(t, mr.Exists("idem:/payments/initiate:key-1"))

	assert.Equal(t, http.StatusBadGateway, postWithKey(r, "key-1").Code)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyMiddleware_RedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	var calls atomic.Int32
	r := idempotentRouter(NewIdempotencyMiddleware(IdempotencyConfig{Redis: client}), &calls, http.StatusOK)
	mr.Close()

	assert.Equal(t, http.StatusOK, postWithKey(r, "key-1").Code)
	assert.Equal(t, int32(1), calls.Load())
}
