package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod — способ оплаты.
type PaymentMethod string

const (
	PaymentMethodERIP           PaymentMethod = "ERIP"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodPaymentAccount PaymentMethod = "paymentAccount"
)

// ParsePaymentMethod разбирает способ оплаты.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.TrimSpace(s)); m {
	case PaymentMethodERIP, PaymentMethodCard, PaymentMethodPaymentAccount:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// DisplayName возвращает название способа оплаты для сообщений.
func (m PaymentMethod) DisplayName() string {
	switch m {
	case PaymentMethodERIP:
		return "ЕРИП"
	case PaymentMethodCard:
		return "Карта (AlphaBank)"
	case PaymentMethodPaymentAccount:
		return "Расчетный счет"
	default:
		return string(m)
	}
}

// PaymentStatus — статус платежа.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusSuccess  PaymentStatus = "success"
	PaymentStatusDeclined PaymentStatus = "declined"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSuccess, PaymentStatusDeclined},
	PaymentStatusSuccess: {PaymentStatusRefunded},
}

// PaymentOutcome — внешний результат оплаты, применяемый при сверке.
type PaymentOutcome string

const (
	OutcomeSuccess  PaymentOutcome = "success"
	OutcomeDeclined PaymentOutcome = "declined"
	OutcomeRefunded PaymentOutcome = "refunded"
)

// ParseOutcome разбирает результат оплаты.
func ParseOutcome(s string) (PaymentOutcome, error) {
	switch o := PaymentOutcome(strings.TrimSpace(s)); o {
	case OutcomeSuccess, OutcomeDeclined, OutcomeRefunded:
		return o, nil
	default:
		return "", ErrInvalidOutcome
	}
}

// PaymentStatus возвращает целевой статус платежа.
func (o PaymentOutcome) PaymentStatus() PaymentStatus {
	switch o {
	case OutcomeSuccess:
		return PaymentStatusSuccess
	case OutcomeDeclined:
		return PaymentStatusDeclined
	default:
		return PaymentStatusRefunded
	}
}

// OrderStatus возвращает целевой статус заказа.
func (o PaymentOutcome) OrderStatus() OrderStatus {
	switch o {
	case OutcomeSuccess:
		return OrderStatusSuccess
	case OutcomeDeclined:
		return OrderStatusCanceled
	default:
		return OrderStatusRefunded
	}
}

// Payment — платёж по заказу. На один заказ приходится не более одного платежа.
type Payment struct {
	ID          PaymentID
	OrderID     OrderID
	Method      PaymentMethod
	Amount      decimal.Decimal
	Status      PaymentStatus
	HashID      *string
	PaymentLink *string
	PaymentDate *time.Time
	RefundDate  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanTransitionTo проверяет допустимость перехода.
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	for _, s := range paymentTransitions[p.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo переводит платёж в новый статус и проставляет даты оплаты и возврата.
// Повтор текущего статуса возвращает changed=false без ошибки.
func (p *Payment) TransitionTo(next PaymentStatus, now time.Time) (changed bool, err error) {
	if p.Status == next {
		return false, nil
	}
	if !p.CanTransitionTo(next) {
		return false, ErrInvalidTransition
	}

	p.Status = next
	p.UpdatedAt = now
	switch next {
	case PaymentStatusSuccess:
		p.PaymentDate = &now
	case PaymentStatusRefunded:
		p.RefundDate = &now
	}
	return true, nil
}

// HasGatewayRef возвращает true, если платёж зарегистрирован в шлюзе.
func (p *Payment) HasGatewayRef() bool {
	return p.HashID != nil && *p.HashID != ""
}

// ReusableLink возвращает сохранённую ссылку на оплату ожидающего платежа.
func (p *Payment) ReusableLink() (string, bool) {
	if p.Status != PaymentStatusPending || !p.HasGatewayRef() || p.PaymentLink == nil || *p.PaymentLink == "" {
		return "", false
	}
	return *p.PaymentLink, true
}
