// Package pricing считает стоимость корзины: ступенчатая скидка, доставка,
// скидка за самовывоз и промокод. Без ввода-вывода; округление только на выходе.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

var (
	tierHighThreshold = decimal.NewFromInt(1500)
	tierLowThreshold  = decimal.NewFromInt(700)
	tierHighPercent   = decimal.NewFromInt(20)
	tierLowPercent    = decimal.NewFromInt(5)

	freeShippingThreshold = decimal.NewFromInt(400)
	shippingFee           = decimal.NewFromInt(20)

	selfPickupPercent = decimal.NewFromInt(3)
)

// Описания ступеней скидки.
const (
	DescriptionTierHigh = "20% (≥1500 BYN)"
	DescriptionTierLow  = "5% (≥700 BYN)"
	DescriptionTierNone = "0% (<700 BYN)"
)

// Line — строка корзины с уже известной ценой.
type Line struct {
	Ref       domain.ProductRef
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal — строка корзины с суммой.
type LineTotal struct {
	Ref        domain.ProductRef
	Title      string
	UnitPrice  decimal.Decimal
	Quantity   int
	TotalPrice decimal.Decimal
}

// AppliedPromocode — промокод, давший скидку.
type AppliedPromocode struct {
	Name            string
	Type            domain.PromocodeType
	PercentDiscount decimal.Decimal
	DiscountAmount  decimal.Decimal
}

// Breakdown — результат расчёта.
type Breakdown struct {
	Lines               []LineTotal
	ShippingType        domain.ShippingType
	Subtotal            decimal.Decimal
	ShippingCost        decimal.Decimal
	BaseDiscount        decimal.Decimal
	SelfPickupDiscount  decimal.Decimal
	PromocodeDiscount   decimal.Decimal
	TotalDiscount       decimal.Decimal // базовая скидка + скидка за самовывоз
	TotalAmount         decimal.Decimal
	FreeShippingApplied bool
	DiscountDescription string
	Promocode           *AppliedPromocode
	PromocodeRejection  error // причина, по которой промокод не применён
}

// Compute считает стоимость корзины. promo может быть nil.
// Невалидный промокод не является ошибкой: он попадает в PromocodeRejection.
func Compute(lines []Line, shippingType domain.ShippingType, promo *domain.Promocode, now time.Time) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, domain.ErrEmptyCart
	}
	if shippingType != domain.ShippingTypeShipping && shippingType != domain.ShippingTypeSelfShipping {
		return Breakdown{}, domain.ErrInvalidShippingType
	}

	b := Breakdown{
		ShippingType:       shippingType,
		Lines:              make([]LineTotal, 0, len(lines)),
		ShippingCost:       decimal.Zero,
		SelfPickupDiscount: decimal.Zero,
		PromocodeDiscount:  decimal.Zero,
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Breakdown{}, &domain.ProductError{Ref: l.Ref, Err: domain.ErrInvalidQuantity}
		}
		total := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(total)
		b.Lines = append(b.Lines, LineTotal{
			Ref:        l.Ref,
			Title:      l.Title,
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
			TotalPrice: total,
		})
	}
	b.Subtotal = subtotal

	b.BaseDiscount, b.DiscountDescription = baseDiscount(subtotal)

	switch shippingType {
	case domain.ShippingTypeShipping:
		if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
			b.FreeShippingApplied = true
		} else {
			b.ShippingCost = shippingFee
		}
		b.TotalDiscount = b.BaseDiscount
		b.TotalAmount = subtotal.Sub(b.TotalDiscount).Add(b.ShippingCost)
	case domain.ShippingTypeSelfShipping:
		b.SelfPickupDiscount = domain.Percent(subtotal, selfPickupPercent)
		b.TotalDiscount = b.BaseDiscount.Add(b.SelfPickupDiscount)
		b.TotalAmount = subtotal.Sub(b.TotalDiscount)
	}

	if promo != nil {
		applyPromocode(&b, promo, now)
	}

	if b.TotalAmount.IsNegative() {
		b.TotalAmount = decimal.Zero
	}

	return b, nil
}

func baseDiscount(subtotal decimal.Decimal) (decimal.Decimal, string) {
	switch {
	case subtotal.GreaterThanOrEqual(tierHighThreshold):
		return domain.Percent(subtotal, tierHighPercent), DescriptionTierHigh
	case subtotal.GreaterThanOrEqual(tierLowThreshold):
		return domain.Percent(subtotal, tierLowPercent), DescriptionTierLow
	default:
		return decimal.Zero, DescriptionTierNone
	}
}

func applyPromocode(b *Breakdown, promo *domain.Promocode, now time.Time) {
	if err := promo.Validate(now); err != nil {
		b.PromocodeRejection = err
		return
	}

	var discount decimal.Decimal
	switch promo.Type {
	case domain.PromocodeTypeOrder:
		discount = domain.Percent(b.Subtotal, promo.PercentDiscount)
	case domain.PromocodeTypeShipping:
		discount = domain.Percent(b.ShippingCost, promo.PercentDiscount)
	case domain.PromocodeTypeWhole:
		discount = domain.Percent(b.TotalAmount, promo.PercentDiscount)
	default:
		discount = decimal.Zero
	}

	b.PromocodeDiscount = discount
	b.TotalAmount = b.TotalAmount.Sub(discount)
	b.Promocode = &AppliedPromocode{
		Name:            promo.Name,
		Type:            promo.Type,
		PercentDiscount: promo.PercentDiscount,
		DiscountAmount:  discount,
	}
}

// Discount возвращает всю скидку заказа, включая промокод.
func (b Breakdown) Discount() decimal.Decimal {
	return b.TotalDiscount.Add(b.PromocodeDiscount)
}

// Rounded возвращает копию с суммами, округлёнными до копеек.
func (b Breakdown) Rounded() Breakdown {
	r := b
	r.Subtotal = domain.RoundMoney(b.Subtotal)
	r.ShippingCost = domain.RoundMoney(b.ShippingCost)
	r.BaseDiscount = domain.RoundMoney(b.BaseDiscount)
	r.SelfPickupDiscount = domain.RoundMoney(b.SelfPickupDiscount)
	r.PromocodeDiscount = domain.RoundMoney(b.PromocodeDiscount)
	r.TotalDiscount = domain.RoundMoney(b.TotalDiscount)
	r.TotalAmount = domain.RoundMoney(b.TotalAmount)

	r.Lines = make([]LineTotal, len(b.Lines))
	for i, l := range b.Lines {
		l.UnitPrice = domain.RoundMoney(l.UnitPrice)
		l.TotalPrice = domain.RoundMoney(l.TotalPrice)
		r.Lines[i] = l
	}

	if b.Promocode != nil {
		p := *b.Promocode
		p.DiscountAmount = domain.RoundMoney(p.DiscountAmount)
		r.Promocode = &p
	}
	return r
}
