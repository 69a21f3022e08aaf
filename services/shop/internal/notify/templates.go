package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/pricing"
)

var minsk = loadMinsk()

func loadMinsk() *time.Location {
	loc, err := time.LoadLocation("Europe/Minsk")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// OrderNotice — данные для сообщения о новом заказе.
type OrderNotice struct {
	Order     *domain.Order
	Breakdown pricing.Breakdown
	// NeedsConfirmation добавляет кнопки подтверждения оплаты оператором.
	NeedsConfirmation bool
}

func money(d decimal.Decimal) string {
	return domain.RoundMoney(d).StringFixed(2)
}

func formatDate(t time.Time) string {
	return t.In(minsk).Format("02.01.2006, 15:04:05")
}

// discountRatio — доля скидки от суммы товаров для распределения по позициям.
func discountRatio(subtotal, discount decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() || !discount.IsPositive() {
		return decimal.Zero
	}
	return discount.Div(subtotal)
}

type itemLine struct {
	Title     string
	Articul   string
	Quantity  int
	UnitPrice string
	Total     string
}

func itemLines(items []domain.OrderItem, subtotal, discount decimal.Decimal) []itemLine {
	ratio := discountRatio(subtotal, discount)
	factor := decimal.NewFromInt(1).Sub(ratio)

	lines := make([]itemLine, 0, len(items))
	for _, item := range items {
		title := fmt.Sprintf("Product #%d", item.ProductID)
		articul := "N/A"
		if item.Product != nil {
			if item.Product.Title != "" {
				title = item.Product.Title
			}
			if item.Product.Articul != "" {
				articul = item.Product.Articul
			}
		}

		unit := item.UnitPrice.Mul(factor)
		lines = append(lines, itemLine{
			Title:     title,
			Articul:   articul,
			Quantity:  item.Quantity,
			UnitPrice: money(unit),
			Total:     money(unit.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	return lines
}

// FormatOrderMessage собирает HTML сообщение о новом заказе для Telegram.
func FormatOrderMessage(n OrderNotice) string {
	o := n.Order
	b := n.Breakdown
	e := html.EscapeString

	var sb strings.Builder
	sb.WriteString("<b>🛒 Новый заказ создан</b>\n\n")
	fmt.Fprintf(&sb, "<b>Номер заказа:</b> #%s\n", e(o.OrderNumber))
	fmt.Fprintf(&sb, "<b>Статус:</b> %s\n", o.Status)
	fmt.Fprintf(&sb, "<b>Дата:</b> %s", formatDate(o.OrderDate))
	if o.PaymentMethod != "" {
		fmt.Fprintf(&sb, "\n<b>Способ оплаты:</b> %s", e(o.PaymentMethod.DisplayName()))
	}
	sb.WriteString("\n\n")

	writeCustomer(&sb, o.Address)

	sb.WriteString("\n<b>Товары:</b>\n")
	lines := itemLines(o.Items, o.Subtotal, o.Discount)
	if len(lines) == 0 {
		sb.WriteString("Нет товаров")
	}
	for i, l := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s (Артикул: %s) - %d шт. × %s BYN = %s BYN",
			i+1, e(l.Title), e(l.Articul), l.Quantity, l.UnitPrice, l.Total)
	}

	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "<b>Сумма товаров:</b> %s BYN", money(b.Subtotal))
	if b.ShippingCost.IsPositive() {
		fmt.Fprintf(&sb, "\n<b>Доставка:</b> +%s BYN", money(b.ShippingCost))
	}
	if b.BaseDiscount.IsPositive() {
		fmt.Fprintf(&sb, "\n<b>Скидка (%s):</b> -%s BYN", b.DiscountDescription, money(b.BaseDiscount))
	}
	if b.SelfPickupDiscount.IsPositive() {
		fmt.Fprintf(&sb, "\n<b>Скидка (самовывоз 3%%):</b> -%s BYN", money(b.SelfPickupDiscount))
	}
	if b.Promocode != nil && b.Promocode.DiscountAmount.IsPositive() {
		fmt.Fprintf(&sb, "\n<b>Промокод %s:</b> -%s BYN", e(b.Promocode.Name), money(b.Promocode.DiscountAmount))
	}
	fmt.Fprintf(&sb, "\n<b>Итого:</b> %s BYN", money(b.TotalAmount))

	fmt.Fprintf(&sb, "\n\n<b>ID заказа:</b> %d", o.ID)
	return sb.String()
}

func writeCustomer(sb *strings.Builder, a *domain.Address) {
	sb.WriteString("<b>Информация о клиенте:</b>\n")
	if a == nil {
		return
	}

	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(sb, "<b>%s:</b> %s\n", label, html.EscapeString(value))
		}
	}

	field("ФИО", a.FullName)
	field("Email", a.Email)
	field("Телефон", a.Phone)
	field("Город", a.City)
	field("Адрес", a.Address)
	field("Почтовый индекс", a.PostalCode)

	shipping := "Доставка"
	if a.Type == domain.ShippingTypeSelfShipping {
		shipping = "Самовывоз"
	}
	field("Тип доставки", shipping)

	if a.IsIndividual {
		field("Тип клиента", "Физическое лицо")
		return
	}
	field("Тип клиента", "Юридическое лицо")
	field("Организация", a.Organization)
	field("УНП", a.UNP)
	field("Расчетный счет", a.PaymentAccount)
	field("Адрес банка", a.BankAddress)
}

func paymentMethodShort(m domain.PaymentMethod) string {
	if m == domain.PaymentMethodCard {
		return "Карта"
	}
	return string(m)
}

func hashID(p *domain.Payment) string {
	if p.HashID == nil {
		return "N/A"
	}
	return html.EscapeString(*p.HashID)
}

// FormatPaymentSuccessMessage собирает сообщение об успешной оплате.
func FormatPaymentSuccessMessage(o *domain.Order, p *domain.Payment) string {
	date := "N/A"
	if p.PaymentDate != nil {
		date = formatDate(*p.PaymentDate)
	}

	var sb strings.Builder
	sb.WriteString("<b>✅ Платеж успешно выполнен</b>\n\n")
	fmt.Fprintf(&sb, "<b>Номер заказа:</b> #%s\n", html.EscapeString(o.OrderNumber))
	fmt.Fprintf(&sb, "<b>Сумма платежа:</b> %s BYN\n", money(p.Amount))
	fmt.Fprintf(&sb, "<b>Способ оплаты:</b> %s\n", paymentMethodShort(p.Method))
	fmt.Fprintf(&sb, "<b>Hash ID:</b> %s\n", hashID(p))
	fmt.Fprintf(&sb, "<b>Дата платежа:</b> %s\n\n", date)
	fmt.Fprintf(&sb, "<b>Статус заказа:</b> %s", o.Status)
	return sb.String()
}

// FormatPaymentFailureMessage собирает сообщение о неуспешной оплате.
func FormatPaymentFailureMessage(o *domain.Order, p *domain.Payment) string {
	var sb strings.Builder
	sb.WriteString("<b>❌ Платеж не выполнен</b>\n\n")
	fmt.Fprintf(&sb, "<b>Номер заказа:</b> #%s\n", html.EscapeString(o.OrderNumber))
	fmt.Fprintf(&sb, "<b>Сумма платежа:</b> %s BYN\n", money(p.Amount))
	fmt.Fprintf(&sb, "<b>Способ оплаты:</b> %s\n", paymentMethodShort(p.Method))
	fmt.Fprintf(&sb, "<b>Hash ID:</b> %s\n", hashID(p))
	fmt.Fprintf(&sb, "<b>Статус:</b> %s\n\n", p.Status)
	fmt.Fprintf(&sb, "<b>Статус заказа:</b> %s", o.Status)
	return sb.String()
}
