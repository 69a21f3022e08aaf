package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — статус заказа.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing принимается от старых записей и трактуется как pending.
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusSuccess    OrderStatus = "success"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusSuccess, OrderStatusCanceled},
	OrderStatusSuccess: {OrderStatusRefunded},
}

func (s OrderStatus) normalized() OrderStatus {
	if s == OrderStatusProcessing {
		return OrderStatusPending
	}
	return s
}

// Order — заказ.
type Order struct {
	ID            OrderID
	OrderNumber   string
	Status        OrderStatus
	OrderDate     time.Time
	Subtotal      decimal.Decimal
	ShippingCost  decimal.Decimal
	Discount      decimal.Decimal
	TotalAmount   decimal.Decimal
	ShippingType  ShippingType
	PaymentMethod PaymentMethod
	Comment       string
	HashID        *string // ссылка платёжного шлюза, задаётся не более одного раза
	AddressID     AddressID
	Address       *Address
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CanTransitionTo проверяет допустимость перехода.
func (o *Order) CanTransitionTo(next OrderStatus) bool {
	for _, s := range orderTransitions[o.Status.normalized()] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo переводит заказ в новый статус. Повтор текущего статуса
// возвращает changed=false без ошибки.
func (o *Order) TransitionTo(next OrderStatus) (changed bool, err error) {
	if o.Status.normalized() == next.normalized() {
		return false, nil
	}
	if !o.CanTransitionTo(next) {
		return false, ErrInvalidTransition
	}
	o.Status = next
	return true, nil
}

// HasGatewayRef возвращает true, если заказ связан с платежом в шлюзе.
func (o *Order) HasGatewayRef() bool {
	return o.HashID != nil && *o.HashID != ""
}

// OrderItem — позиция заказа. Цена фиксируется на момент оформления.
type OrderItem struct {
	ID         uint64
	OrderID    OrderID
	ProductID  ProductID
	Product    *Product
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// NewOrderItem создаёт позицию с TotalPrice = UnitPrice × Quantity.
func NewOrderItem(productID ProductID, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}
