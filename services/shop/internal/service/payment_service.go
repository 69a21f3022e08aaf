package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/alfabank"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// GatewayRegistrar регистрирует заказ в платёжном шлюзе.
type GatewayRegistrar interface {
	Register(ctx context.Context, req alfabank.RegisterRequest) (*alfabank.RegisterResponse, error)
}

// PaymentResult — платёж заказа и, для оплаты картой, ссылка на форму банка.
type PaymentResult struct {
	Payment     *domain.Payment
	PaymentLink string
	GatewayRef  string
	// Existing — платёж уже существовал, шлюз не вызывался.
	Existing bool
}

// PaymentService создаёт платежи по заказам.
type PaymentService interface {
	// CreatePaymentForOrder создаёт единственный платёж заказа. Повторный вызов
	// возвращает существующий платёж и не регистрирует заказ в шлюзе повторно.
	CreatePaymentForOrder(ctx context.Context, orderID domain.OrderID, method domain.PaymentMethod, useGateway bool) (*PaymentResult, error)
}

type paymentService struct {
	orders   repository.OrderRepository
	payments repository.PaymentRepository
	gateway  GatewayRegistrar
}

// NewPaymentService создаёт сервис платежей.
func NewPaymentService(orders repository.OrderRepository, payments repository.PaymentRepository, gateway GatewayRegistrar) PaymentService {
	return &paymentService{orders: orders, payments: payments, gateway: gateway}
}

func (s *paymentService) CreatePaymentForOrder(ctx context.Context, orderID domain.OrderID, method domain.PaymentMethod, useGateway bool) (*PaymentResult, error) {
	log := logger.FromContext(ctx).With().
		Uint64("order_id", uint64(orderID)).
		Str("payment_method", string(method)).
		Bool("use_gateway", useGateway).
		Logger()

	existing, err := s.payments.GetByOrderID(ctx, orderID)
	switch {
	case err == nil:
		log.Info().Uint64("payment_id", uint64(existing.ID)).Msg("Возвращён существующий платёж заказа")
		return existingResult(existing), nil
	case !errors.Is(err, domain.ErrPaymentNotFound):
		return nil, fmt.Errorf("ошибка поиска платежа: %w", err)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заказа: %w", err)
	}

	payment := &domain.Payment{
		OrderID: orderID,
		Method:  method,
		Amount:  order.TotalAmount,
		Status:  domain.PaymentStatusPending,
	}

	if useGateway {
		resp, err := s.gateway.Register(ctx, alfabank.RegisterRequest{
			OrderID:     orderID,
			Amount:      order.TotalAmount,
			Description: "Заказ №" + order.OrderNumber,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка регистрации оплаты: %w", err)
		}
		payment.HashID = &resp.OrderID
		payment.PaymentLink = &resp.FormURL
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			// параллельный запрос успел создать платёж первым
			winner, getErr := s.payments.GetByOrderID(ctx, orderID)
			if getErr != nil {
				return nil, fmt.Errorf("ошибка повторного чтения платежа: %w", getErr)
			}
			if payment.HasGatewayRef() {
				log.Warn().Str("hash_id", *payment.HashID).Msg("Регистрация в шлюзе не использована: платёж уже создан")
			}
			return existingResult(winner), nil
		}
		return nil, fmt.Errorf("ошибка сохранения платежа: %w", err)
	}

	result := &PaymentResult{Payment: payment}
	if payment.HasGatewayRef() {
		result.GatewayRef = *payment.HashID
		result.PaymentLink = *payment.PaymentLink

		if err := s.orders.SetHashID(ctx, orderID, result.GatewayRef); err != nil {
			if !errors.Is(err, repository.ErrHashIDAlreadySet) {
				return nil, fmt.Errorf("ошибка сохранения ссылки шлюза в заказе: %w", err)
			}
			log.Warn().Msg("У заказа уже есть ссылка шлюза")
		}
	}

	log.Info().Uint64("payment_id", uint64(payment.ID)).Msg("Платёж создан")
	return result, nil
}

func existingResult(p *domain.Payment) *PaymentResult {
	r := &PaymentResult{Payment: p, Existing: true}
	if link, ok := p.ReusableLink(); ok {
		r.PaymentLink = link
		r.GatewayRef = *p.HashID
	}
	return r
}
