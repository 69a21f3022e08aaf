package handler

import (
	"context"

	"example.com/jewelry-shop/pkg/jwt"
	"example.com/jewelry-shop/services/shop/internal/worker"
)

// TaskQueue — фоновая очередь задач. Позволяет подменить очередь в тестах.
type TaskQueue interface {
	Enqueue(ctx context.Context, name string, fn worker.Func) (string, error)
}

// TokenRevoker отзывает токены операторов.
type TokenRevoker interface {
	Revoke(ctx context.Context, claims *jwt.Claims) error
}
