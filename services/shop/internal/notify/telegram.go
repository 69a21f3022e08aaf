package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"example.com/jewelry-shop/pkg/circuitbreaker"
	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/services/shop/internal/domain"
)

// ErrNotConfigured — Telegram бот не настроен.
var ErrNotConfigured = errors.New("telegram бот не настроен")

// Telegram отправляет сообщения в чат операторов.
type Telegram struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	secret  string
	breaker *circuitbreaker.Breaker
}

var _ Bot = (*Telegram)(nil)

// TelegramOption — функциональная опция бота.
type TelegramOption func(*telegramOptions)

type telegramOptions struct {
	client  tgbotapi.HTTPClient
	breaker *circuitbreaker.Breaker
}

// WithTelegramHTTPClient задаёт HTTP клиент для Bot API.
func WithTelegramHTTPClient(c tgbotapi.HTTPClient) TelegramOption {
	return func(o *telegramOptions) {
		o.client = c
	}
}

// WithTelegramBreaker задаёт Circuit Breaker.
func WithTelegramBreaker(b *circuitbreaker.Breaker) TelegramOption {
	return func(o *telegramOptions) {
		o.breaker = b
	}
}

// NewTelegram создаёт бота. Конструктор вызывает getMe для проверки токена.
func NewTelegram(cfg config.TelegramConfig, opts ...TelegramOption) (*Telegram, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	o := telegramOptions{client: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.breaker == nil {
		o.breaker = circuitbreaker.New("telegram")
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, o.client)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к Telegram Bot API: %w", err)
	}

	return &Telegram{
		api:     api,
		chatID:  cfg.ChatID,
		secret:  cfg.WebhookSecret,
		breaker: o.breaker,
	}, nil
}

// ConfirmationKeyboard возвращает кнопки подтверждения оплаты заказа.
func ConfirmationKeyboard(orderID domain.OrderID) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Оплачен", CallbackSuccess+":"+orderID.String()),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонён", CallbackDeclined+":"+orderID.String()),
		),
	)
}

// ParseCallbackData разбирает callback data вида "success:<id>" или "declined:<id>".
func ParseCallbackData(data string) (domain.PaymentOutcome, domain.OrderID, error) {
	action, rawID, ok := strings.Cut(strings.TrimSpace(data), ":")
	if !ok {
		return "", 0, fmt.Errorf("некорректные callback data %q", data)
	}

	var outcome domain.PaymentOutcome
	switch action {
	case CallbackSuccess:
		outcome = domain.OutcomeSuccess
	case CallbackDeclined:
		outcome = domain.OutcomeDeclined
	default:
		return "", 0, fmt.Errorf("неизвестное действие %q в callback data", action)
	}

	id, err := domain.ParseOrderID(rawID)
	if err != nil {
		return "", 0, fmt.Errorf("некорректный id заказа в callback data: %w", err)
	}
	return outcome, id, nil
}

func (t *Telegram) send(ctx context.Context, msg tgbotapi.MessageConfig) error {
	err := t.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := t.api.Send(msg)
		return err
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("telegram").Inc()
		return fmt.Errorf("ошибка отправки сообщения в Telegram: %w", err)
	}
	return nil
}

func (t *Telegram) html(text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

// OrderCreated отправляет сообщение о новом заказе.
func (t *Telegram) OrderCreated(ctx context.Context, n OrderNotice) error {
	msg := t.html(FormatOrderMessage(n))
	if n.NeedsConfirmation {
		msg.ReplyMarkup = ConfirmationKeyboard(n.Order.ID)
	}
	return t.send(ctx, msg)
}

// PaymentSucceeded отправляет сообщение об успешной оплате.
func (t *Telegram) PaymentSucceeded(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	return t.send(ctx, t.html(FormatPaymentSuccessMessage(order, payment)))
}

// PaymentFailed отправляет сообщение о неуспешной оплате.
func (t *Telegram) PaymentFailed(ctx context.Context, order *domain.Order, payment *domain.Payment) error {
	return t.send(ctx, t.html(FormatPaymentFailureMessage(order, payment)))
}

// Text отправляет произвольное HTML сообщение.
func (t *Telegram) Text(ctx context.Context, text string) error {
	return t.send(ctx, t.html(text))
}

// AnswerCallback отвечает на нажатие кнопки, убирая индикатор загрузки у оператора.
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	err := t.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := t.api.Request(tgbotapi.NewCallback(callbackID, text))
		return err
	})
	if err != nil {
		return fmt.Errorf("ошибка ответа на callback: %w", err)
	}
	return nil
}

// SetupWebhook регистрирует webhook и возвращает его состояние.
func (t *Telegram) SetupWebhook(ctx context.Context, url string) (*WebhookInfo, error) {
	if url == "" {
		return nil, errors.New("не указан URL webhook")
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", t.secret)
	if err := params.AddInterface("allowed_updates", []string{"callback_query"}); err != nil {
		return nil, fmt.Errorf("ошибка подготовки параметров webhook: %w", err)
	}

	if _, err := t.api.MakeRequest("setWebhook", params); err != nil {
		return nil, fmt.Errorf("ошибка регистрации webhook: %w", err)
	}

	info, err := t.api.GetWebhookInfo()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения информации о webhook: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Info().
		Str("url", info.URL).
		Int("pending", info.PendingUpdateCount).
		Msg("Webhook Telegram зарегистрирован")

	return &WebhookInfo{
		URL:                info.URL,
		PendingUpdateCount: info.PendingUpdateCount,
		LastErrorDate:      info.LastErrorDate,
		LastErrorMessage:   info.LastErrorMessage,
	}, nil
}
