// Package notify отправляет уведомления операторам в Telegram и письма покупателям через Resend.
package notify

import (
	"context"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// Callback data кнопок подтверждения оплаты: "<исход>:<id заказа>".
const (
	CallbackSuccess  = "success"
	CallbackDeclined = "declined"
)

// Notifier уведомляет операторов о заказах и платежах.
type Notifier interface {
	OrderCreated(ctx context.Context, n OrderNotice) error
	PaymentSucceeded(ctx context.Context, order *domain.Order, payment *domain.Payment) error
	PaymentFailed(ctx context.Context, order *domain.Order, payment *domain.Payment) error
	Text(ctx context.Context, text string) error
}

// CallbackAnswerer отвечает на нажатие inline-кнопки.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// WebhookInfo — состояние webhook бота.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pendingUpdateCount"`
	LastErrorDate      int    `json:"lastErrorDate,omitempty"`
	LastErrorMessage   string `json:"lastErrorMessage,omitempty"`
}

// WebhookManager регистрирует webhook бота.
type WebhookManager interface {
	SetupWebhook(ctx context.Context, url string) (*WebhookInfo, error)
}

// Bot объединяет возможности Telegram бота.
type Bot interface {
	Notifier
	CallbackAnswerer
	WebhookManager
}

// Noop — бот-заглушка, когда Telegram не настроен.
type Noop struct{}

var _ Bot = Noop{}

func (Noop) OrderCreated(context.Context, OrderNotice) error { return nil }

func (Noop) PaymentSucceeded(context.Context, *domain.Order, *domain.Payment) error { return nil }

func (Noop) PaymentFailed(context.Context, *domain.Order, *domain.Payment) error { return nil }

func (Noop) Text(context.Context, string) error { return nil }

func (Noop) AnswerCallback(context.Context, string, string) error { return nil }

func (Noop) SetupWebhook(context.Context, string) (*WebhookInfo, error) {
	return nil, ErrNotConfigured
}
