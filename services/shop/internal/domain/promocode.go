package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PromocodeType определяет базу, от которой считается скидка промокода.
type PromocodeType string

const (
	PromocodeTypeOrder    PromocodeType = "order"    // от суммы товаров
	PromocodeTypeShipping PromocodeType = "shipping" // от стоимости доставки
	PromocodeTypeWhole    PromocodeType = "whole"    // от текущего итога
)

// Promocode — промокод. AvailableUsages хранит остаток использований:
// каждое погашение добавляет связь с заказом и уменьшает остаток на единицу.
type Promocode struct {
	ID              PromocodeID
	Name            string
	Type            PromocodeType
	PercentDiscount decimal.Decimal
	AvailableUsages int
	IsActual        bool
	ValidUntil      *time.Time
	PublishedAt     *time.Time
	UsageCount      int
}

// NormalizePromocodeName убирает пробелы по краям.
func NormalizePromocodeName(name string) string {
	return strings.TrimSpace(name)
}

// Validate проверяет, что промокод можно применить в момент now.
func (p *Promocode) Validate(now time.Time) error {
	if p.PublishedAt == nil {
		return ErrPromocodeNotFound
	}
	if !p.IsActual {
		return ErrPromocodeInactive
	}
	if p.ValidUntil != nil && !now.Before(*p.ValidUntil) {
		return ErrPromocodeExpired
	}
	if p.AvailableUsages <= 0 {
		return ErrPromocodeExhausted
	}
	return nil
}
