package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/pricing"
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:            42,
		OrderNumber:   "1700000000000",
		Status:        domain.OrderStatusPending,
		OrderDate:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Subtotal:      decimal.NewFromInt(800),
		ShippingCost:  decimal.Zero,
		Discount:      decimal.NewFromInt(40),
		TotalAmount:   decimal.NewFromInt(760),
		ShippingType:  domain.ShippingTypeShipping,
		PaymentMethod: domain.PaymentMethodERIP,
		Address: &domain.Address{
			Type:         domain.ShippingTypeShipping,
			IsIndividual: true,
			FullName:     "Иванов <Иван>",
			Email:        "ivan@example.by",
			Phone:        "+375291112233",
			City:         "Гродно",
			Address:      "ул. Титова 24",
		},
		Items: []domain.OrderItem{
			{
				ProductID:  1,
				Product:    &domain.Product{ID: 1, Title: "Кольцо", Articul: "R-01"},
				Quantity:   2,
				UnitPrice:  decimal.NewFromInt(400),
				TotalPrice: decimal.NewFromInt(800),
			},
		},
	}
}

func sampleBreakdown(t *testing.T) pricing.Breakdown {
	t.Helper()
	b, err := pricing.Compute([]pricing.Line{
		{Ref: domain.ProductRefBySlug("ring"), Title: "Кольцо", UnitPrice: decimal.NewFromInt(400), Quantity: 2},
	}, domain.ShippingTypeShipping, nil, time.Now())
	require.NoError(t, err)
	return b
}

func TestFormatOrderMessage(t *testing.T) {
	msg := FormatOrderMessage(OrderNotice{Order: sampleOrder(), Breakdown: sampleBreakdown(t)})

	assert.Contains(t, msg, "<b>Номер заказа:</b> #1700000000000")
	assert.Contains(t, msg, "<b>Способ оплаты:</b> ЕРИП")
	assert.Contains(t, msg, "<b>ФИО:</b> Иванов &lt;Иван&gt;")
	assert.Contains(t, msg, "<b>Тип клиента:</b> Физическое лицо")
	assert.NotContains(t, msg, "Организация")
	// 5% скидки распределяется по позициям
	assert.Contains(t, msg, "1. Кольцо (Артикул: R-01) - 2 шт. × 380.00 BYN = 760.00 BYN")
	assert.Contains(t, msg, "<b>Сумма товаров:</b> 800.00 BYN")
	assert.Contains(t, msg, "<b>Скидка (5% (≥700 BYN)):</b> -40.00 BYN")
	assert.Contains(t, msg, "<b>Итого:</b> 760.00 BYN")
	assert.Contains(t, msg, "<b>ID заказа:</b> 42")
}

func TestFormatOrderMessage_Organization(t *testing.T) {
	order := sampleOrder()
	order.PaymentMethod = domain.PaymentMethodPaymentAccount
	order.Address.IsIndividual = false
	order.Address.Organization = "ООО Ромашка"
	order.Address.UNP = "190000000"
	order.Address.BankAddress = "г. Минск"

	msg := FormatOrderMessage(OrderNotice{Order: order, Breakdown: sampleBreakdown(t)})

	assert.Contains(t, msg, "<b>Способ оплаты:</b> Расчетный счет")
	assert.Contains(t, msg, "<b>Тип клиента:</b> Юридическое лицо")
	assert.Contains(t, msg, "<b>Организация:</b> ООО Ромашка")
	assert.Contains(t, msg, "<b>УНП:</b> 190000000")
	assert.Contains(t, msg, "<b>Адрес банка:</b> г. Минск")
}

func TestFormatPaymentFailureMessage(t *testing.T) {
	order := sampleOrder()
	order.Status = domain.OrderStatusCanceled

	msg := FormatPaymentFailureMessage(order, &domain.Payment{
		Method: domain.PaymentMethodCard,
		Amount: decimal.NewFromInt(760),
		Status: domain.PaymentStatusDeclined,
	})

	assert.Contains(t, msg, "Платеж не выполнен")
	assert.Contains(t, msg, "<b>Способ оплаты:</b> Карта")
	assert.Contains(t, msg, "<b>Hash ID:</b> N/A")
	assert.Contains(t, msg, "<b>Статус:</b> declined")
	assert.Contains(t, msg, "<b>Статус заказа:</b> canceled")
}

func TestEmailMessages(t *testing.T) {
	e := OrderEmailFromOrder(sampleOrder())
	assert.Equal(t, "ivan@example.by", e.To)

	erip, err := OrderCreatedERIPMessage(e)
	require.NoError(t, err)
	assert.Equal(t, "Ваш заказ №1700000000000 успешно оформлен", erip.Subject)
	assert.Contains(t, erip.HTML, "через ЕРИП или Расчётный счет")
	assert.Contains(t, erip.HTML, "• Кольцо - 2 шт. × 380.00 BYN = 760.00 BYN")
	assert.Contains(t, erip.HTML, "<b>Итоговая сумма:</b> 760.00 BYN")
	assert.Contains(t, erip.HTML, "команда MPP.Shop")

	pickup, err := OrderCreatedSelfPickupMessage(e)
	require.NoError(t, err)
	assert.Contains(t, pickup.HTML, "в нашем пункте выдачи")

	paid, err := OrderPaidMessage(e)
	require.NoError(t, err)
	assert.Equal(t, "Ваш заказ №1700000000000 успешно оплачен", paid.Subject)
	assert.Contains(t, paid.HTML, "дополнительное уведомление")
}

func TestEmailMessages_EscapesTitles(t *testing.T) {
	e := OrderEmailFromOrder(sampleOrder())
	e.Items[0].Product.Title = "<script>"

	msg, err := OrderCreatedERIPMessage(e)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}
