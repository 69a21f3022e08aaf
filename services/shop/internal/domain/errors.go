// Package domain содержит бизнес-сущности магазина: товары, заказы, платежи, промокоды.
package domain

import (
	"errors"
	"fmt"
)

// Доменные ошибки.
var (
	ErrEmptyCart           = errors.New("корзина пуста")
	ErrInvalidQuantity     = errors.New("количество товара должно быть больше нуля")
	ErrInvalidShippingType = errors.New(`тип доставки должен быть "shipping" или "selfShipping"`)
	ErrInvalidProductRef   = errors.New("не указан slug или id товара")

	ErrProductNotFound     = errors.New("товар не найден")
	ErrProductNotOrderable = errors.New("товар недоступен для заказа")
	ErrMissingPrice        = errors.New("у товара нет цены")

	ErrOrderNotFound   = errors.New("заказ не найден")
	ErrPaymentNotFound = errors.New("платёж не найден")

	ErrInvalidTransition    = errors.New("недопустимый переход статуса")
	ErrInvalidOutcome       = errors.New("неизвестный результат оплаты")
	ErrInvalidPaymentMethod = errors.New("недопустимый способ оплаты")
	ErrGatewayUnavailable   = errors.New("платёжный шлюз временно недоступен")

	ErrPromocodeNotFound  = errors.New("промокод не найден")
	ErrPromocodeInactive  = errors.New("промокод не активен")
	ErrPromocodeExpired   = errors.New("срок действия промокода истёк")
	ErrPromocodeExhausted = errors.New("промокод исчерпан")
)

// ProductError — ошибка по конкретному товару корзины.
type ProductError struct {
	Ref ProductRef
	Err error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Ref)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

// ValidationError — некорректные входные данные. Field указывает первое невалидное поле.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создаёт ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GatewayError — отказ платёжного шлюза или некорректный ответ.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return "ошибка платёжного шлюза: " + e.Message
	}
	return fmt.Sprintf("ошибка платёжного шлюза [%s]: %s", e.Code, e.Message)
}
