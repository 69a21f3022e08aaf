package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/service"
)

// Пути клиентского приложения для редиректов после оплаты.
const (
	clientSuccessPath = "/payment-success"
	clientFailurePath = "/payment-failure"
	clientErrorPath   = "/payment-error"
)

// PaymentHandler — оформление заказа с оплатой и сверка результатов оплаты.
type PaymentHandler struct {
	checkout   service.CheckoutService
	recon      service.ReconciliationService
	webhooks   notify.WebhookManager
	tasks      TaskQueue
	clientURL  string
	webhookURL string
}

// PaymentHandlerConfig — зависимости обработчика платежей.
type PaymentHandlerConfig struct {
	Checkout       service.CheckoutService
	Reconciliation service.ReconciliationService
	Webhooks       notify.WebhookManager
	Tasks          TaskQueue
	ClientBaseURL  string
	WebhookURL     string // адрес webhook по умолчанию
}

// NewPaymentHandler создаёт обработчик платежей.
func NewPaymentHandler(cfg PaymentHandlerConfig) *PaymentHandler {
	return &PaymentHandler{
		checkout:   cfg.Checkout,
		recon:      cfg.Reconciliation,
		webhooks:   cfg.Webhooks,
		tasks:      cfg.Tasks,
		clientURL:  strings.TrimRight(cfg.ClientBaseURL, "/"),
		webhookURL: cfg.WebhookURL,
	}
}

// Initiate обрабатывает POST /payments/initiate.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Некорректный формат запроса")
		return
	}

	lines, err := toCartLines(req.Products)
	if err != nil {
		HandleError(c, err, "InitiatePayment")
		return
	}

	shippingType, err := domain.ParseShippingType(req.Address.Type)
	if err != nil {
		HandleError(c, err, "InitiatePayment")
		return
	}

	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		HandleError(c, err, "InitiatePayment")
		return
	}

	result, err := h.checkout.Initiate(c.Request.Context(), service.CheckoutInput{
		Lines:         lines,
		Address:       req.Address.toInput(),
		ShippingType:  shippingType,
		PaymentMethod: method,
		Comment:       req.Comment,
		PromocodeName: req.Promocode,
	})
	if err != nil {
		HandleError(c, err, "InitiatePayment")
		return
	}

	c.JSON(http.StatusCreated, toInitiateResponse(result))
}

// Success обрабатывает редирект банка после успешной оплаты.
func (h *PaymentHandler) Success(c *gin.Context) {
	h.applyRedirect(c, domain.OutcomeSuccess, clientSuccessPath)
}

// Failure обрабатывает редирект банка после неуспешной оплаты.
func (h *PaymentHandler) Failure(c *gin.Context) {
	h.applyRedirect(c, domain.OutcomeDeclined, clientFailurePath)
}

// applyRedirect применяет результат оплаты по hashId из параметра orderId
// и перенаправляет покупателя в клиентское приложение.
func (h *PaymentHandler) applyRedirect(c *gin.Context, outcome domain.PaymentOutcome, path string) {
	hashID := strings.TrimSpace(c.Query("orderId"))
	if hashID == "" {
		badRequest(c, "Не указан orderId")
		return
	}

	if _, err := h.recon.ApplyByHashID(c.Request.Context(), hashID, outcome); err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().
			Err(err).
			Str("hash_id", hashID).
			Str("outcome", string(outcome)).
			Msg("Ошибка обработки редиректа банка")

		status, _ := errorStatus(err)
		h.redirect(c, clientErrorPath, url.Values{"message": {errorMessage(err, status)}})
		return
	}

	h.redirect(c, path, url.Values{"orderId": {hashID}})
}

func (h *PaymentHandler) redirect(c *gin.Context, path string, query url.Values) {
	c.Redirect(http.StatusFound, h.clientURL+path+"?"+query.Encode())
}

// TelegramCallback обрабатывает webhook Telegram. Ответ отдаётся сразу,
// нажатие кнопки обрабатывается в фоновой очереди.
func (h *PaymentHandler) TelegramCallback(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "Некорректный формат обновления")
		return
	}

	ctx := c.Request.Context()
	log := logger.FromContext(ctx).With().Int("update_id", update.UpdateID).Logger()

	if update.CallbackQuery == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	cb := service.TelegramCallback{
		UpdateID:   update.UpdateID,
		CallbackID: update.CallbackQuery.ID,
		Data:       update.CallbackQuery.Data,
	}

	// очередь сама отвязывает задачу от отмены ctx
	_, err := h.tasks.Enqueue(ctx, "telegram_callback", func(taskCtx context.Context) error {
		return h.recon.HandleTelegramCallback(taskCtx, cb)
	})
	if err != nil {
		// Telegram повторит доставку, повтор отсеется по update_id
		log.Error().Err(err).Msg("Не удалось поставить обработку callback в очередь")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "Повторите запрос позже",
		})
		return
	}

	log.Debug().Str("data", cb.Data).Msg("Callback поставлен в очередь")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SetupTelegramWebhook обрабатывает GET /payments/setup-telegram-webhook?url=.
func (h *PaymentHandler) SetupTelegramWebhook(c *gin.Context) {
	webhookURL := strings.TrimSpace(c.Query("url"))
	if webhookURL == "" {
		webhookURL = h.webhookURL
	}
	if webhookURL == "" {
		badRequest(c, "Не указан url webhook")
		return
	}

	info, err := h.webhooks.SetupWebhook(c.Request.Context(), webhookURL)
	if err != nil {
		log := logger.FromContext(c.Request.Context())
		log.Error().Err(err).Str("url", webhookURL).Msg("Не удалось установить webhook")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "webhook_error",
			Message: "Не удалось установить webhook Telegram",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "webhook": info})
}
