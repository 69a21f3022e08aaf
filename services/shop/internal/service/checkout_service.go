package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/pricing"
)

// CheckoutInput — запрос оформления заказа с оплатой.
type CheckoutInput struct {
	Lines         []CartLine
	Address       AddressInput
	ShippingType  domain.ShippingType
	PaymentMethod domain.PaymentMethod
	Comment       string
	PromocodeName string
}

// CheckoutResult — оформленный заказ и его платёж.
type CheckoutResult struct {
	Order     *domain.Order
	Breakdown pricing.Breakdown
	Payment   *PaymentResult
}

// CheckoutService оформляет заказ и создаёт платёж одним вызовом.
type CheckoutService interface {
	Initiate(ctx context.Context, in CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	orders   OrderService
	payments PaymentService
	mailer   notify.Mailer
	validate *validator.Validate
}

// NewCheckoutService создаёт сервис оформления.
func NewCheckoutService(orders OrderService, payments PaymentService, mailer notify.Mailer) CheckoutService {
	if mailer == nil {
		mailer = notify.NoopMailer{}
	}
	return &checkoutService{
		orders:   orders,
		payments: payments,
		mailer:   mailer,
		validate: newPayerValidator(),
	}
}

func (s *checkoutService) Initiate(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if err := s.validatePayer(in.Address, in.PaymentMethod); err != nil {
		return nil, err
	}

	useGateway := in.PaymentMethod == domain.PaymentMethodCard && in.Address.IsIndividual

	created, err := s.orders.CreateOrder(ctx, CreateOrderInput{
		Lines:                in.Lines,
		Address:              in.Address,
		ShippingType:         in.ShippingType,
		Comment:              in.Comment,
		PromocodeName:        in.PromocodeName,
		PaymentMethod:        in.PaymentMethod,
		SuppressNotification: useGateway,
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With().
		Uint64("order_id", uint64(created.Order.ID)).
		Str("order_number", created.Order.OrderNumber).
		Logger()

	payment, err := s.payments.CreatePaymentForOrder(ctx, created.Order.ID, in.PaymentMethod, useGateway)
	if err != nil {
		// заказ остаётся в статусе pending
		log.Error().Err(err).Msg("Ошибка создания платежа")
		return nil, err
	}

	if !useGateway {
		if err := s.mailer.OrderCreated(ctx, notify.OrderEmailFromOrder(created.Order)); err != nil {
			log.Error().Err(err).Msg("Ошибка отправки письма о заказе")
		}
	}

	return &CheckoutResult{Order: created.Order, Breakdown: created.Breakdown, Payment: payment}, nil
}

type individualPayer struct {
	PaymentMethod domain.PaymentMethod `json:"paymentMethod" validate:"required,oneof=ERIP card"`
	FullName      string               `json:"fullName" validate:"required"`
	Email         string               `json:"email" validate:"required"`
	Phone         string               `json:"phone" validate:"required"`
	City          string               `json:"city" validate:"required"`
	Address       string               `json:"address" validate:"required"`
}

type organizationPayer struct {
	PaymentMethod  domain.PaymentMethod `json:"paymentMethod" validate:"required,oneof=ERIP paymentAccount"`
	Organization   string               `json:"organization" validate:"required"`
	FullName       string               `json:"fullName" validate:"required"`
	UNP            string               `json:"unp" validate:"required"`
	PaymentAccount string               `json:"paymentAccount" validate:"required"`
	BankAddress    string               `json:"bankAddress" validate:"required"`
	Email          string               `json:"email" validate:"required"`
	Phone          string               `json:"phone" validate:"required"`
	City           string               `json:"city" validate:"required"`
	Address        string               `json:"address" validate:"required"`
}

func newPayerValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePayer проверяет обязательные поля плательщика в зависимости от его типа
// и способа оплаты. Возвращает ошибку по первому невалидному полю.
func (s *checkoutService) validatePayer(a AddressInput, method domain.PaymentMethod) error {
	var payer any
	if a.IsIndividual {
		payer = individualPayer{
			PaymentMethod: method,
			FullName:      strings.TrimSpace(a.FullName),
			Email:         strings.TrimSpace(a.Email),
			Phone:         strings.TrimSpace(a.Phone),
			City:          strings.TrimSpace(a.City),
			Address:       strings.TrimSpace(a.Address),
		}
	} else {
		payer = organizationPayer{
			PaymentMethod:  method,
			Organization:   strings.TrimSpace(a.Organization),
			FullName:       strings.TrimSpace(a.FullName),
			UNP:            strings.TrimSpace(a.UNP),
			PaymentAccount: strings.TrimSpace(a.PaymentAccount),
			BankAddress:    strings.TrimSpace(a.BankAddress),
			Email:          strings.TrimSpace(a.Email),
			Phone:          strings.TrimSpace(a.Phone),
			City:           strings.TrimSpace(a.City),
			Address:        strings.TrimSpace(a.Address),
		}
	}

	err := s.validate.Struct(payer)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("ошибка проверки плательщика: %w", err)
	}

	fe := fieldErrs[0]
	if fe.Tag() == "oneof" {
		if a.IsIndividual {
			return domain.NewValidationError(fe.Field(), "физическое лицо может оплатить через ЕРИП или картой")
		}
		return domain.NewValidationError(fe.Field(), "организация может оплатить через ЕРИП или по расчетному счету")
	}
	return domain.NewValidationError(fe.Field(), "обязательное поле")
}
