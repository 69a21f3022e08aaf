package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/services/shop/internal/domain"
)

const testToken = "123:abc"

// fakeBotAPI имитирует Telegram Bot API и запоминает вызовы.
type fakeBotAPI struct {
	mu      sync.Mutex
	calls   map[string][]url.Values
	failing bool
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		method := strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/")

		f.mu.Lock()
		f.calls[method] = append(f.calls[method], r.PostForm)
		failing := f.failing
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case method == "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Shop","username":"shop_bot"}}`))
		case failing:
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		case method == "sendMessage":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":10,"date":1700000000,"chat":{"id":-100,"type":"group"}}}`))
		case method == "answerCallbackQuery", method == "setWebhook":
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		case method == "getWebhookInfo":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"url":"https://shop.by/payments/telegram-callback","has_custom_certificate":false,"pending_update_count":2}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeBotAPI) last(method string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls[method]
	if len(c) == 0 {
		return nil
	}
	return c[len(c)-1]
}

func newTestTelegram(t *testing.T) (*Telegram, *fakeBotAPI) {
	t.Helper()

	fake := &fakeBotAPI{calls: map[string][]url.Values{}}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	bot, err := NewTelegram(config.TelegramConfig{
		BotToken:      testToken,
		ChatID:        -100,
		WebhookSecret: "s3cret",
		APIEndpoint:   srv.URL + "/bot%s/%s",
	})
	require.NoError(t, err)
	return bot, fake
}

func TestNewTelegram_NotConfigured(t *testing.T) {
	_, err := NewTelegram(config.TelegramConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTelegram_OrderCreated_WithKeyboard(t *testing.T) {
	bot, fake := newTestTelegram(t)

	order := sampleOrder()
	err := bot.OrderCreated(context.Background(), OrderNotice{
		Order:             order,
		Breakdown:         sampleBreakdown(t),
		NeedsConfirmation: true,
	})
	require.NoError(t, err)

	form := fake.last("sendMessage")
	require.NotNil(t, form)
	assert.Equal(t, "-100", form.Get("chat_id"))
	assert.Equal(t, "HTML", form.Get("parse_mode"))
	assert.Contains(t, form.Get("text"), "Новый заказ создан")
	assert.Contains(t, form.Get("reply_markup"), `"callback_data":"success:42"`)
	assert.Contains(t, form.Get("reply_markup"), `"callback_data":"declined:42"`)
}

func TestTelegram_PaymentSucceeded_NoKeyboard(t *testing.T) {
	bot, fake := newTestTelegram(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hash := "hash-1"
	err := bot.PaymentSucceeded(context.Background(), sampleOrder(), &domain.Payment{
		Method:      domain.PaymentMethodCard,
		Amount:      decimal.RequireFromString("99.5"),
		Status:      domain.PaymentStatusSuccess,
		HashID:      &hash,
		PaymentDate: &now,
	})
	require.NoError(t, err)

	form := fake.last("sendMessage")
	assert.Contains(t, form.Get("text"), "Платеж успешно выполнен")
	assert.Contains(t, form.Get("text"), "99.50 BYN")
	assert.Empty(t, form.Get("reply_markup"))
}

func TestTelegram_SendError(t *testing.T) {
	bot, fake := newTestTelegram(t)
	fake.failing = true

	err := bot.Text(context.Background(), "проверка")
	assert.Error(t, err)
}

func TestTelegram_AnswerCallback(t *testing.T) {
	bot, fake := newTestTelegram(t)

	require.NoError(t, bot.AnswerCallback(context.Background(), "cb-1", "Готово"))

	form := fake.last("answerCallbackQuery")
	assert.Equal(t, "cb-1", form.Get("callback_query_id"))
	assert.Equal(t, "Готово", form.Get("text"))
}

func TestTelegram_SetupWebhook(t *testing.T) {
	bot, fake := newTestTelegram(t)

	info, err := bot.SetupWebhook(context.Background(), "https://shop.by/payments/telegram-callback")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.by/payments/telegram-callback", info.URL)
	assert.Equal(t, 2, info.PendingUpdateCount)

	form := fake.last("setWebhook")
	assert.Equal(t, "https://shop.by/payments/telegram-callback", form.Get("url"))
	assert.Equal(t, "s3cret", form.Get("secret_token"))

	_, err = bot.SetupWebhook(context.Background(), "")
	assert.Error(t, err)
}

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantOutcome domain.PaymentOutcome
		wantID      domain.OrderID
		wantErr     bool
	}{
		{name: "успех", data: "success:42", wantOutcome: domain.OutcomeSuccess, wantID: 42},
		{name: "отклонён", data: "declined:7", wantOutcome: domain.OutcomeDeclined, wantID: 7},
		{name: "нет разделителя", data: "success42", wantErr: true},
		{name: "неизвестное действие", data: "refund:1", wantErr: true},
		{name: "некорректный id", data: "success:abc", wantErr: true},
		{name: "нулевой id", data: "declined:0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, id, err := ParseCallbackData(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutcome, outcome)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
