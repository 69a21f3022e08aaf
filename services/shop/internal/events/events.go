// Package events описывает доменные события заказа и записывает их в outbox.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/jewelry-shop/pkg/kafka"
	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/outbox"
	"example.com/jewelry-shop/services/shop/internal/domain"
)

// AggregateOrder — тип агрегата событий магазина в outbox.
const AggregateOrder = "order"

// Типы событий.
const (
	TypeOrderCreated         = "order.created"
	TypePaymentStatusChanged = "payment.status_changed"
)

// OrderCreated — заказ оформлен.
type OrderCreated struct {
	OrderID       uint64    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Status        string    `json:"status"`
	ShippingType  string    `json:"shipping_type"`
	PaymentMethod string    `json:"payment_method"`
	Subtotal      string    `json:"subtotal"`
	ShippingCost  string    `json:"shipping_cost"`
	Discount      string    `json:"discount"`
	TotalAmount   string    `json:"total_amount"`
	Items         []Item    `json:"items"`
	Promocode     string    `json:"promocode,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item — позиция заказа в событии.
type Item struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// PaymentStatusChanged — применён результат оплаты.
type PaymentStatusChanged struct {
	OrderID       uint64    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	PaymentID     uint64    `json:"payment_id"`
	Outcome       string    `json:"outcome"`
	PaymentStatus string    `json:"payment_status"`
	OrderStatus   string    `json:"order_status"`
	Source        string    `json:"source"`
	ChangedAt     time.Time `json:"changed_at"`
}

// NewOrderCreated собирает событие из сохранённого заказа.
func NewOrderCreated(o *domain.Order, promocode string) OrderCreated {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{
			ProductID: uint64(it.ProductID),
			Quantity:  it.Quantity,
			UnitPrice: domain.RoundMoney(it.UnitPrice).StringFixed(2),
		})
	}

	return OrderCreated{
		OrderID:       uint64(o.ID),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		ShippingType:  string(o.ShippingType),
		PaymentMethod: string(o.PaymentMethod),
		Subtotal:      domain.RoundMoney(o.Subtotal).StringFixed(2),
		ShippingCost:  domain.RoundMoney(o.ShippingCost).StringFixed(2),
		Discount:      domain.RoundMoney(o.Discount).StringFixed(2),
		TotalAmount:   domain.RoundMoney(o.TotalAmount).StringFixed(2),
		Items:         items,
		Promocode:     promocode,
		CreatedAt:     o.OrderDate,
	}
}

// Publisher записывает события в outbox.
type Publisher interface {
	OrderCreated(ctx context.Context, e OrderCreated) error
	PaymentStatusChanged(ctx context.Context, e PaymentStatusChanged) error
}

type outboxPublisher struct {
	store outbox.Store
	topic string
}

// NewOutboxPublisher создаёт Publisher поверх outbox.
func NewOutboxPublisher(store outbox.Store, topic string) Publisher {
	if topic == "" {
		topic = kafka.TopicOrders
	}
	return &outboxPublisher{store: store, topic: topic}
}

func (p *outboxPublisher) OrderCreated(ctx context.Context, e OrderCreated) error {
	return p.append(ctx, e.OrderID, TypeOrderCreated, e)
}

func (p *outboxPublisher) PaymentStatusChanged(ctx context.Context, e PaymentStatusChanged) error {
	return p.append(ctx, e.OrderID, TypePaymentStatusChanged, e)
}

func (p *outboxPublisher) append(ctx context.Context, orderID uint64, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события %s: %w", eventType, err)
	}

	id := fmt.Sprintf("%d", orderID)
	headers := map[string]string{}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		headers[kafka.HeaderTraceID] = traceID
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		headers[kafka.HeaderCorrelationID] = correlationID
	}

	record := &outbox.Record{
		AggregateType: AggregateOrder,
		AggregateID:   id,
		EventType:     eventType,
		Topic:         p.topic,
		Key:           id,
		Payload:       data,
		Headers:       headers,
	}
	if err := p.store.Append(ctx, record); err != nil {
		return fmt.Errorf("ошибка записи события %s в outbox: %w", eventType, err)
	}
	return nil
}

// Nop — издатель, который ничего не записывает.
type Nop struct{}

func (Nop) OrderCreated(context.Context, OrderCreated) error { return nil }

func (Nop) PaymentStatusChanged(context.Context, PaymentStatusChanged) error { return nil }
