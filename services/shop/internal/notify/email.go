package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"

	"example.com/jewelry-shop/pkg/config"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/services/shop/internal/domain"
)

// OrderEmail — данные письма покупателю.
type OrderEmail struct {
	To           string
	OrderNumber  string
	ShippingType domain.ShippingType
	Items        []domain.OrderItem
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	TotalAmount  decimal.Decimal
}

// OrderEmailFromOrder собирает письмо из заказа.
func OrderEmailFromOrder(o *domain.Order) OrderEmail {
	e := OrderEmail{
		OrderNumber:  o.OrderNumber,
		ShippingType: o.ShippingType,
		Items:        o.Items,
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		TotalAmount:  o.TotalAmount,
	}
	if o.Address != nil {
		e.To = o.Address.Email
	}
	return e
}

// Mailer отправляет письма покупателям.
type Mailer interface {
	// OrderCreated отправляет письмо об оформлении: шаблон самовывоза
	// или шаблон оплаты через ЕРИП / расчётный счёт.
	OrderCreated(ctx context.Context, e OrderEmail) error
	// OrderPaid отправляет письмо об успешной оплате картой.
	OrderPaid(ctx context.Context, e OrderEmail) error
}

// NoopMailer — заглушка, когда отправка писем не настроена.
type NoopMailer struct{}

func (NoopMailer) OrderCreated(context.Context, OrderEmail) error { return nil }

func (NoopMailer) OrderPaid(context.Context, OrderEmail) error { return nil }

var emailTemplate = template.Must(template.New("email").Parse(`<p>Здравствуйте!</p>
<p>{{.Intro}}</p>
<p><b>Детали заказа:</b></p>
<p>{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}• {{$l.Title}} - {{$l.Quantity}} шт. × {{$l.UnitPrice}} BYN = {{$l.Total}} BYN{{else}}Нет товаров{{end}}</p>
<p><b>Итоговая сумма:</b> {{.Total}} BYN</p>
{{if .Outro}}<p>{{.Outro}}</p>
{{end}}<br><br>
С уважением, команда MPP.Shop<br>
г. Гродно, ул. Титова 24<br>
Время работы: Пн–Пт, 9:00–17:00<br>
Тел.: +375 44 749-54-65<br>
Сайт: <a href="https://mppshop.by">https://mppshop.by</a><br><br>
Мы готовы помочь вам по любым вопросам, связанным с оформлением и оплатой заказа.
`))

type emailView struct {
	Intro string
	Outro string
	Lines []itemLine
	Total string
}

// Message — тема и тело письма.
type Message struct {
	Subject string
	HTML    string
}

func render(e OrderEmail, intro, outro string) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, emailView{
		Intro: intro,
		Outro: outro,
		Lines: itemLines(e.Items, e.Subtotal, e.Discount),
		Total: money(e.TotalAmount),
	})
	if err != nil {
		return "", fmt.Errorf("ошибка рендеринга письма: %w", err)
	}
	return buf.String(), nil
}

// OrderCreatedERIPMessage — письмо об оформлении с оплатой через ЕРИП или расчётный счёт.
func OrderCreatedERIPMessage(e OrderEmail) (Message, error) {
	body, err := render(e,
		fmt.Sprintf("Ваш заказ №%s успешно создан. В ближайшее время менеджер подготовит и отправит вам письмо с данными для оплаты через ЕРИП или Расчётный счет.", e.OrderNumber),
		"")
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: fmt.Sprintf("Ваш заказ №%s успешно оформлен", e.OrderNumber), HTML: body}, nil
}

// OrderCreatedSelfPickupMessage — письмо об оформлении с оплатой при самовывозе.
func OrderCreatedSelfPickupMessage(e OrderEmail) (Message, error) {
	body, err := render(e,
		fmt.Sprintf("Ваш заказ №%s успешно создан и принят в обработку. Оплата будет произведена наличными или банковской картой при получении товара в нашем пункте выдачи.", e.OrderNumber),
		"")
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: fmt.Sprintf("Ваш заказ №%s успешно оформлен", e.OrderNumber), HTML: body}, nil
}

// OrderPaidMessage — письмо об успешной оплате картой.
func OrderPaidMessage(e OrderEmail) (Message, error) {
	body, err := render(e,
		fmt.Sprintf("Ваш платеж по заказу №%s был успешно выполнен. Мы приняли заказ в работу и подготовим его к выдаче или отправке.", e.OrderNumber),
		"Когда заказ будет готов, вы получите дополнительное уведомление.")
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: fmt.Sprintf("Ваш заказ №%s успешно оплачен", e.OrderNumber), HTML: body}, nil
}

// ResendMailer отправляет письма через Resend.
type ResendMailer struct {
	emails resend.EmailsSvc
	from   string
}

var _ Mailer = (*ResendMailer)(nil)

// NewMailer возвращает ResendMailer или NoopMailer, если отправка не настроена.
func NewMailer(cfg config.EmailConfig) Mailer {
	if !cfg.Enabled() {
		return NoopMailer{}
	}
	return NewResendMailer(resend.NewClient(cfg.ResendAPIKey), cfg.From)
}

// NewResendMailer создаёт отправителя поверх клиента Resend.
func NewResendMailer(client *resend.Client, from string) *ResendMailer {
	return &ResendMailer{emails: client.Emails, from: from}
}

// OrderCreated отправляет письмо об оформлении заказа.
func (m *ResendMailer) OrderCreated(ctx context.Context, e OrderEmail) error {
	build := OrderCreatedERIPMessage
	if e.ShippingType == domain.ShippingTypeSelfShipping {
		build = OrderCreatedSelfPickupMessage
	}
	return m.deliver(ctx, e, build)
}

// OrderPaid отправляет письмо об оплате.
func (m *ResendMailer) OrderPaid(ctx context.Context, e OrderEmail) error {
	return m.deliver(ctx, e, OrderPaidMessage)
}

func (m *ResendMailer) deliver(ctx context.Context, e OrderEmail, build func(OrderEmail) (Message, error)) error {
	log := logger.FromContext(ctx)

	if e.To == "" {
		log.Warn().Str("order_number", e.OrderNumber).Msg("Не указан email получателя, письмо пропущено")
		return nil
	}

	msg, err := build(e)
	if err != nil {
		return err
	}

	resp, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		return fmt.Errorf("ошибка отправки письма: %w", err)
	}

	log.Info().
		Str("order_number", e.OrderNumber).
		Str("email_id", resp.Id).
		Msg("Письмо отправлено")
	return nil
}
