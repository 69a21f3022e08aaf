package service

import (
	"context"
	"errors"
	"fmt"
	"html"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/events"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// Источники результата оплаты.
const (
	SourceGateway  = "gateway"
	SourceTelegram = "telegram"
	SourceOperator = "operator"
)

// ReconciliationResult — результат применения исхода оплаты.
type ReconciliationResult struct {
	Order   *domain.Order
	Payment *domain.Payment
	Outcome domain.PaymentOutcome
	// Changed=false — статус уже был применён, побочных эффектов нет.
	Changed bool
}

// TelegramCallback — нажатие кнопки оператором.
type TelegramCallback struct {
	UpdateID   int
	CallbackID string
	Data       string
}

// ReconciliationService применяет результаты оплаты к платежу и заказу.
type ReconciliationService interface {
	// ApplyByHashID находит платёж по ссылке шлюза (редирект банка).
	ApplyByHashID(ctx context.Context, hashID string, outcome domain.PaymentOutcome) (*ReconciliationResult, error)
	// ApplyByOrderID находит платёж по id заказа (прямая смена статуса оператором).
	ApplyByOrderID(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*ReconciliationResult, error)
	// HandleTelegramCallback обрабатывает нажатие кнопки в чате операторов.
	HandleTelegramCallback(ctx context.Context, cb TelegramCallback) error
}

// GatewayOrderNumbers переводит номер заказа шлюза в id заказа.
type GatewayOrderNumbers interface {
	OrderIDFromGateway(orderNumber string) (domain.OrderID, error)
}

// ReconciliationDeps — зависимости сервиса сверки.
type ReconciliationDeps struct {
	Catalog  repository.CatalogRepository
	Orders   repository.OrderRepository
	Payments repository.PaymentRepository
	Bot      notify.Bot
	Mailer   notify.Mailer
	Events   events.Publisher
	Dedup    notify.UpdateDeduplicator
	Clock    domain.Clock

	// OrderNumbers — запасной поиск, когда в редиректе пришёл номер заказа шлюза.
	OrderNumbers GatewayOrderNumbers
}

type reconciliationService struct {
	catalog      repository.CatalogRepository
	orders       repository.OrderRepository
	payments     repository.PaymentRepository
	bot          notify.Bot
	mailer       notify.Mailer
	events       events.Publisher
	dedup        notify.UpdateDeduplicator
	clock        domain.Clock
	orderNumbers GatewayOrderNumbers
}

// NewReconciliationService создаёт сервис сверки.
func NewReconciliationService(deps ReconciliationDeps) ReconciliationService {
	s := &reconciliationService{
		catalog:      deps.Catalog,
		orders:       deps.Orders,
		payments:     deps.Payments,
		bot:          deps.Bot,
		mailer:       deps.Mailer,
		events:       deps.Events,
		dedup:        deps.Dedup,
		clock:        deps.Clock,
		orderNumbers: deps.OrderNumbers,
	}
	if s.bot == nil {
		s.bot = notify.Noop{}
	}
	if s.mailer == nil {
		s.mailer = notify.NoopMailer{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.clock == nil {
		s.clock = domain.SystemClock{}
	}
	return s
}

func (s *reconciliationService) ApplyByHashID(ctx context.Context, hashID string, outcome domain.PaymentOutcome) (*ReconciliationResult, error) {
	return s.applyByHashID(ctx, hashID, outcome, SourceGateway)
}

func (s *reconciliationService) ApplyByOrderID(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*ReconciliationResult, error) {
	return s.applyByOrderID(ctx, orderID, outcome, SourceOperator)
}

func (s *reconciliationService) applyByHashID(ctx context.Context, hashID string, outcome domain.PaymentOutcome, source string) (*ReconciliationResult, error) {
	if hashID == "" {
		return nil, domain.NewValidationError("orderId", "не указан идентификатор заказа в шлюзе")
	}
	payment, err := s.payments.GetByHashID(ctx, hashID)
	if errors.Is(err, domain.ErrPaymentNotFound) && s.orderNumbers != nil {
		// банк может вернуть в редиректе наш orderNumber вместо своего orderId
		if orderID, numErr := s.orderNumbers.OrderIDFromGateway(hashID); numErr == nil {
			log := logger.FromContext(ctx)
			log.Info().
				Str("order_number", hashID).
				Uint64("order_id", uint64(orderID)).
				Msg("Платёж найден по номеру заказа шлюза")
			return s.applyByOrderID(ctx, orderID, outcome, source)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска платежа по hash_id: %w", err)
	}
	return s.apply(ctx, payment, outcome, source)
}

func (s *reconciliationService) applyByOrderID(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome, source string) (*ReconciliationResult, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска платежа по заказу: %w", err)
	}
	return s.apply(ctx, payment, outcome, source)
}

func (s *reconciliationService) apply(ctx context.Context, payment *domain.Payment, outcome domain.PaymentOutcome, source string) (*ReconciliationResult, error) {
	log := logger.FromContext(ctx).With().
		Uint64("order_id", uint64(payment.OrderID)).
		Uint64("payment_id", uint64(payment.ID)).
		Str("outcome", string(outcome)).
		Str("source", source).
		Logger()

	order, err := s.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}

	now := s.clock.Now()
	from := payment.Status

	paymentChanged, err := payment.TransitionTo(outcome.PaymentStatus(), now)
	if err != nil {
		log.Warn().Str("from", string(from)).Msg("Недопустимый переход статуса платежа")
		return nil, fmt.Errorf("платёж в статусе %s: %w", from, err)
	}
	orderChanged, err := order.TransitionTo(outcome.OrderStatus())
	if err != nil {
		log.Warn().Str("order_status", string(order.Status)).Msg("Недопустимый переход статуса заказа")
		return nil, fmt.Errorf("заказ в статусе %s: %w", order.Status, err)
	}

	result := &ReconciliationResult{Order: order, Payment: payment, Outcome: outcome}
	if !paymentChanged && !orderChanged {
		log.Info().Msg("Статус оплаты уже применён")
		return result, nil
	}
	result.Changed = true

	if paymentChanged {
		if err := s.payments.UpdateStatus(ctx, payment); err != nil {
			return nil, fmt.Errorf("ошибка обновления платежа: %w", err)
		}
	}
	if orderChanged {
		if err := s.orders.UpdateStatus(ctx, order.ID, order.Status); err != nil {
			return nil, fmt.Errorf("ошибка обновления заказа: %w", err)
		}
	}

	metrics.PaymentTransitions.WithLabelValues(string(outcome), source).Inc()
	log.Info().
		Str("payment_status", string(payment.Status)).
		Str("order_status", string(order.Status)).
		Msg("Статус оплаты применён")

	var stockErr error
	if outcome == domain.OutcomeDeclined && orderChanged {
		stockErr = s.restoreStock(ctx, order)
	}

	s.notifyOutcome(ctx, order, payment, outcome)

	err = s.events.PaymentStatusChanged(ctx, events.PaymentStatusChanged{
		OrderID:       uint64(order.ID),
		OrderNumber:   order.OrderNumber,
		PaymentID:     uint64(payment.ID),
		Outcome:       string(outcome),
		PaymentStatus: string(payment.Status),
		OrderStatus:   string(order.Status),
		Source:        source,
		ChangedAt:     now,
	})
	if err != nil {
		log.Error().Err(err).Msg("Ошибка записи события payment.status_changed")
	}

	if stockErr != nil {
		return result, stockErr
	}
	return result, nil
}

// restoreStock возвращает резерв по позициям заказа. Позиции без товара или без
// учёта остатка пропускаются; ошибки по отдельным товарам не прерывают остальные.
func (s *reconciliationService) restoreStock(ctx context.Context, order *domain.Order) error {
	log := logger.FromContext(ctx).With().Uint64("order_id", uint64(order.ID)).Logger()

	var errs []error
	for _, item := range order.Items {
		if item.Product == nil {
			log.Warn().Uint64("product_id", uint64(item.ProductID)).Msg("Товар позиции не найден, остаток не восстановлен")
			continue
		}
		if item.Product.Stock == nil {
			log.Warn().Uint64("product_id", uint64(item.ProductID)).Msg("У товара не ведётся остаток, пропуск")
			continue
		}

		restored, err := s.catalog.RestoreStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			log.Error().Err(err).Uint64("product_id", uint64(item.ProductID)).Msg("Ошибка восстановления остатка")
			errs = append(errs, fmt.Errorf("товар %d: %w", item.ProductID, err))
			continue
		}
		if !restored {
			log.Warn().Uint64("product_id", uint64(item.ProductID)).Msg("Остаток не восстановлен: товар удалён или остаток не ведётся")
			continue
		}
		log.Info().
			Uint64("product_id", uint64(item.ProductID)).
			Int("quantity", item.Quantity).
			Msg("Остаток восстановлен")
	}

	if len(errs) > 0 {
		return fmt.Errorf("ошибка восстановления остатков: %w", errors.Join(errs...))
	}
	return nil
}

func (s *reconciliationService) notifyOutcome(ctx context.Context, order *domain.Order, payment *domain.Payment, outcome domain.PaymentOutcome) {
	log := logger.FromContext(ctx).With().Uint64("order_id", uint64(order.ID)).Logger()

	switch outcome {
	case domain.OutcomeSuccess:
		if err := s.bot.PaymentSucceeded(ctx, order, payment); err != nil {
			log.Error().Err(err).Msg("Ошибка уведомления об успешной оплате")
		}
		if payment.HasGatewayRef() {
			if err := s.mailer.OrderPaid(ctx, notify.OrderEmailFromOrder(order)); err != nil {
				log.Error().Err(err).Msg("Ошибка отправки письма об оплате")
			}
		}
	case domain.OutcomeDeclined:
		if err := s.bot.PaymentFailed(ctx, order, payment); err != nil {
			log.Error().Err(err).Msg("Ошибка уведомления о неуспешной оплате")
		}
	}
}

func (s *reconciliationService) HandleTelegramCallback(ctx context.Context, cb TelegramCallback) error {
	log := logger.FromContext(ctx).With().
		Int("update_id", cb.UpdateID).
		Str("callback_data", cb.Data).
		Logger()

	if s.dedup != nil && cb.UpdateID != 0 {
		first, err := s.dedup.FirstSeen(ctx, cb.UpdateID)
		if err != nil {
			log.Warn().Err(err).Msg("Не удалось проверить повтор update_id, обрабатываем")
		} else if !first {
			log.Info().Msg("Повторная доставка callback, пропуск")
			return nil
		}
	}

	outcome, orderID, err := notify.ParseCallbackData(cb.Data)
	if err != nil {
		s.answer(ctx, cb.CallbackID, "Некорректная команда")
		return err
	}

	result, err := s.applyFromCallback(ctx, orderID, outcome)
	if err != nil {
		s.answer(ctx, cb.CallbackID, "Ошибка обработки")
		s.report(ctx, fmt.Sprintf("⚠️ Заказ ID %d: не удалось применить статус %s: %s",
			orderID, outcome, html.EscapeString(err.Error())))
		return fmt.Errorf("ошибка обработки callback для заказа %d: %w", orderID, err)
	}

	if !result.Changed {
		s.answer(ctx, cb.CallbackID, "Статус уже применён")
		return nil
	}

	text := "Оплата подтверждена"
	if outcome == domain.OutcomeDeclined {
		text = "Оплата отклонена"
	}
	s.answer(ctx, cb.CallbackID, text)
	s.report(ctx, fmt.Sprintf("%s: заказ #%s, статус заказа %s",
		text, html.EscapeString(result.Order.OrderNumber), result.Order.Status))
	return nil
}

// applyFromCallback ищет платёж по ссылке шлюза, если она есть у заказа, иначе по id заказа.
func (s *reconciliationService) applyFromCallback(ctx context.Context, orderID domain.OrderID, outcome domain.PaymentOutcome) (*ReconciliationResult, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}
	if order.HasGatewayRef() {
		return s.applyByHashID(ctx, *order.HashID, outcome, SourceTelegram)
	}
	return s.applyByOrderID(ctx, orderID, outcome, SourceTelegram)
}

func (s *reconciliationService) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := s.bot.AnswerCallback(ctx, callbackID, text); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Ошибка ответа на callback")
	}
}

func (s *reconciliationService) report(ctx context.Context, text string) {
	if err := s.bot.Text(ctx, text); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Ошибка отправки отчёта в чат")
	}
}
