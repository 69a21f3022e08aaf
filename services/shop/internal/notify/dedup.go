package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const updateKeyPrefix = "telegram:update:"

// UpdateDeduplicator отсеивает повторно доставленные обновления Telegram.
type UpdateDeduplicator interface {
	// FirstSeen возвращает true при первом появлении update_id.
	FirstSeen(ctx context.Context, updateID int) (bool, error)
}

// RedisDeduplicator хранит обработанные update_id в Redis с TTL.
type RedisDeduplicator struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisDeduplicator создаёт дедупликатор. Telegram повторяет доставку не дольше суток.
func NewRedisDeduplicator(client redis.UniversalClient, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduplicator{client: client, ttl: ttl}
}

func (d *RedisDeduplicator) FirstSeen(ctx context.Context, updateID int) (bool, error) {
	ok, err := d.client.SetNX(ctx, fmt.Sprintf("%s%d", updateKeyPrefix, updateID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки update_id в redis: %w", err)
	}
	return ok, nil
}
