package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "jwt:blacklist:"

// Blacklist хранит jti отозванных токенов в Redis до истечения их срока.
type Blacklist struct {
	redis redis.UniversalClient
}

// NewBlacklist создаёт blacklist.
func NewBlacklist(client redis.UniversalClient) *Blacklist {
	return &Blacklist{redis: client}
}

// Add отзывает токен. Истёкший токен не сохраняется.
func (b *Blacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.redis.Set(ctx, blacklistPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("ошибка добавления токена в blacklist: %w", err)
	}
	return nil
}

// Check возвращает true, если токен отозван.
func (b *Blacklist) Check(ctx context.Context, jti string) (bool, error) {
	n, err := b.redis.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки blacklist: %w", err)
	}
	return n > 0, nil
}
