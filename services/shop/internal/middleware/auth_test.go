package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/services/shop/internal/httputil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockTokenValidator — мок TokenValidator.
type MockTokenValidator struct {
	ValidateFunc func(ctx context.Context, token string) (*jwt.Claims, error)
}

func (m *MockTokenValidator) ValidateWithBlacklist(ctx context.Context, token string) (*jwt.Claims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token)
	}
	return nil, errors.New("ValidateFunc not set")
}

func TestAuthMiddleware(t *testing.T) {
	operator := func(ctx context.Context, token string) (*jwt.Claims, error) {
		if token != "good" {
			return nil, jwt.ErrInvalidToken
		}
		c := &jwt.Claims{OperatorID: "op-1", Role: jwt.RoleOperator}
		c.ID = "jti-1"
		return c, nil
	}

	tests := []struct {
		name       string
		header     string
		validate   func(ctx context.Context, token string) (*jwt.Claims, error)
		wantStatus int
		wantCalled bool
	}{
		{name: "оператор", header: "Bearer good", validate: operator, wantStatus: http.StatusOK, wantCalled: true},
		{name: "регистр префикса", header: "bearer good", validate: operator, wantStatus: http.StatusOK, wantCalled: true},
		{name: "нет заголовка", wantStatus: http.StatusUnauthorized},
		{name: "без Bearer", header: "good", validate: operator, wantStatus: http.StatusUnauthorized},
		{name: "невалидный токен", header: "Bearer bad", validate: operator, wantStatus: http.StatusUnauthorized},
		{
			name:   "отозванный токен",
			header: "Bearer good",
			validate: func(context.Context, string) (*jwt.Claims, error) {
				return nil, jwt.ErrTokenRevoked
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "чужая роль",
			header: "Bearer good",
			validate: func(context.Context, string) (*jwt.Claims, error) {
				return &jwt.Claims{OperatorID: "x", Role: "viewer"}, nil
			},
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewAuthMiddleware(&MockTokenValidator{ValidateFunc: tt.validate})

			called := false
			r := gin.New()
			r.GET("/admin", mw.Handle(), func(c *gin.Context) {
				called = true
				assert.Equal(t, "op-1", c.GetString(httputil.KeyOperatorID))
				_, ok := c.Get(httputil.KeyClaims)
				assert.True(t, ok)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestTelegramSecret(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
	}{
		{name: "проверка отключена", secret: "", header: "", wantStatus: http.StatusOK},
		{name: "верный секрет", secret: "s3cret", header: "s3cret", wantStatus: http.StatusOK},
		{name: "неверный секрет", secret: "s3cret", header: "guess", wantStatus: http.StatusUnauthorized},
		{name: "нет заголовка", secret: "s3cret", header: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/hook", TelegramSecret(tt.secret), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/hook", nil)
			if tt.header != "" {
				req.Header.Set(HeaderTelegramSecret, tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
