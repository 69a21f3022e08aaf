package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/pkg/metrics"
	"example.com/jewelry-shop/pkg/saga"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/events"
	"example.com/jewelry-shop/services/shop/internal/notify"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// AddressInput — реквизиты покупателя из формы оформления.
type AddressInput struct {
	IsIndividual   bool
	FullName       string
	Organization   string
	UNP            string
	PaymentAccount string
	BankAddress    string
	Email          string
	Phone          string
	City           string
	Address        string
	PostalCode     string
}

func (a AddressInput) toDomain(shippingType domain.ShippingType) *domain.Address {
	return &domain.Address{
		Type:           shippingType,
		IsIndividual:   a.IsIndividual,
		FullName:       a.FullName,
		Organization:   a.Organization,
		UNP:            a.UNP,
		PaymentAccount: a.PaymentAccount,
		BankAddress:    a.BankAddress,
		Email:          a.Email,
		Phone:          a.Phone,
		City:           a.City,
		Address:        a.Address,
		PostalCode:     a.PostalCode,
	}
}

// CreateOrderInput — данные для оформления заказа.
type CreateOrderInput struct {
	Lines         []CartLine
	Address       AddressInput
	ShippingType  domain.ShippingType
	Comment       string
	PromocodeName string
	PaymentMethod domain.PaymentMethod
	// SuppressNotification откладывает уведомление операторов до подтверждения оплаты картой.
	SuppressNotification bool
}

// CreateOrderResult — оформленный заказ.
type CreateOrderResult struct {
	Order     *domain.Order
	Breakdown pricing.Breakdown
	// PromocodeRedeemed — промокод привязан к заказу.
	PromocodeRedeemed bool
}

// OrderService оформляет заказы.
type OrderService interface {
	// CreateOrder выполняет шаги оформления последовательно. При сбое после
	// резервирования остатков выполненные шаги откатываются в обратном порядке.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
}

// OrderDeps — зависимости сервиса заказов.
type OrderDeps struct {
	Catalog    repository.CatalogRepository
	Orders     repository.OrderRepository
	Promocodes repository.PromocodeRepository
	Notifier   notify.Notifier
	Events     events.Publisher
	Clock      domain.Clock
	Numbers    *domain.OrderNumberGenerator
}

type orderService struct {
	catalog    repository.CatalogRepository
	orders     repository.OrderRepository
	promocodes repository.PromocodeRepository
	notifier   notify.Notifier
	events     events.Publisher
	clock      domain.Clock
	numbers    *domain.OrderNumberGenerator
}

// NewOrderService создаёт сервис заказов. Пустые Notifier, Events, Clock и Numbers
// заменяются заглушками и системными часами.
func NewOrderService(deps OrderDeps) OrderService {
	s := &orderService{
		catalog:    deps.Catalog,
		orders:     deps.Orders,
		promocodes: deps.Promocodes,
		notifier:   deps.Notifier,
		events:     deps.Events,
		clock:      deps.Clock,
		numbers:    deps.Numbers,
	}
	if s.notifier == nil {
		s.notifier = notify.Noop{}
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.clock == nil {
		s.clock = domain.SystemClock{}
	}
	if s.numbers == nil {
		s.numbers = domain.NewOrderNumberGenerator(s.clock)
	}
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	log := logger.FromContext(ctx)

	shippingType := in.ShippingType
	if shippingType == "" {
		shippingType = domain.ShippingTypeShipping
	}

	// Шаг 1: товары и расчёт стоимости
	resolved, lines, err := resolveCart(ctx, s.catalog, in.Lines)
	if err != nil {
		log.Warn().Err(err).Msg("Корзина не прошла проверку")
		return nil, err
	}

	promo := lookupPromocode(ctx, s.promocodes, in.PromocodeName)
	now := s.clock.Now()

	breakdown, err := pricing.Compute(lines, shippingType, promo, now)
	if err != nil {
		return nil, fmt.Errorf("ошибка расчёта стоимости: %w", err)
	}

	comp := saga.NewLog()
	fail := func(err error) error {
		if cerr := comp.Compensate(logger.Detach(ctx)); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}

	// Шаг 2: резерв остатков
	for _, l := range resolved {
		if l.Product.Stock == nil {
			continue
		}
		id, qty := l.Product.ID, l.Quantity
		reserved, err := s.catalog.ReserveStock(ctx, id, qty)
		if err != nil {
			log.Error().Err(err).Uint64("product_id", uint64(id)).Msg("Ошибка резервирования остатка")
			return nil, fail(fmt.Errorf("ошибка резервирования остатка: %w", err))
		}
		if reserved {
			comp.Add("restore_stock", func(ctx context.Context) error {
				_, err := s.catalog.RestoreStock(ctx, id, qty)
				return err
			})
		}
	}

	// Шаг 3: адрес
	address := in.Address.toDomain(shippingType)
	if err := s.orders.CreateAddress(ctx, address); err != nil {
		log.Error().Err(err).Msg("Ошибка сохранения адреса")
		return nil, fail(fmt.Errorf("ошибка сохранения адреса: %w", err))
	}
	comp.Add("delete_address", func(ctx context.Context) error {
		return s.orders.DeleteAddress(ctx, address.ID)
	})

	// Шаги 4-5: номер и заказ
	order := &domain.Order{
		OrderNumber:   s.numbers.Next(),
		Status:        domain.OrderStatusPending,
		OrderDate:     now,
		Subtotal:      breakdown.Subtotal,
		ShippingCost:  breakdown.ShippingCost,
		Discount:      breakdown.Discount(),
		TotalAmount:   breakdown.TotalAmount,
		ShippingType:  shippingType,
		PaymentMethod: in.PaymentMethod,
		Comment:       in.Comment,
		AddressID:     address.ID,
		Address:       address,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		log.Error().Err(err).Msg("Ошибка сохранения заказа")
		return nil, fail(fmt.Errorf("ошибка сохранения заказа: %w", err))
	}
	comp.Add("delete_order", func(ctx context.Context) error {
		return s.orders.Delete(ctx, order.ID)
	})

	log = log.With().Uint64("order_id", uint64(order.ID)).Str("order_number", order.OrderNumber).Logger()

	// Шаг 6: погашение промокода
	redeemed := s.redeemPromocode(ctx, in.PromocodeName, order.ID, comp)

	// Шаг 7: позиции
	items := make([]domain.OrderItem, 0, len(resolved))
	for _, l := range resolved {
		item := domain.NewOrderItem(l.Product.ID, l.Quantity, *l.Product.Price)
		item.OrderID = order.ID
		items = append(items, item)
	}
	if err := s.orders.CreateItems(ctx, order.ID, items); err != nil {
		log.Error().Err(err).Msg("Ошибка сохранения позиций заказа, откат оформления")
		return nil, fail(fmt.Errorf("ошибка сохранения позиций заказа: %w", err))
	}
	for i := range items {
		items[i].Product = resolved[i].Product
	}
	order.Items = items

	comp.Commit()
	metrics.OrdersCreated.WithLabelValues(string(shippingType)).Inc()

	log.Info().
		Str("total_amount", domain.RoundMoney(order.TotalAmount).StringFixed(2)).
		Bool("promocode_redeemed", redeemed).
		Msg("Заказ создан")

	appliedPromo := ""
	if breakdown.Promocode != nil {
		appliedPromo = breakdown.Promocode.Name
	}
	if err := s.events.OrderCreated(ctx, events.NewOrderCreated(order, appliedPromo)); err != nil {
		log.Error().Err(err).Msg("Ошибка записи события order.created")
	}

	// Шаг 8: уведомление
	if !in.SuppressNotification {
		err := s.notifier.OrderCreated(ctx, notify.OrderNotice{
			Order:             order,
			Breakdown:         breakdown,
			NeedsConfirmation: true,
		})
		if err != nil {
			log.Error().Err(err).Msg("Ошибка уведомления о новом заказе")
		}
	}

	return &CreateOrderResult{Order: order, Breakdown: breakdown, PromocodeRedeemed: redeemed}, nil
}

// redeemPromocode повторно проверяет промокод и привязывает его к заказу.
// Ошибки логируются и не прерывают оформление.
func (s *orderService) redeemPromocode(ctx context.Context, name string, orderID domain.OrderID, comp *saga.Log) bool {
	name = domain.NormalizePromocodeName(name)
	if name == "" {
		return false
	}

	log := logger.FromContext(ctx).With().Str("promocode", name).Uint64("order_id", uint64(orderID)).Logger()

	promo, err := s.promocodes.GetByName(ctx, name)
	if err != nil {
		log.Warn().Err(err).Msg("Промокод не погашен: ошибка получения")
		return false
	}
	if err := promo.Validate(s.clock.Now()); err != nil {
		log.Warn().Err(err).Msg("Промокод не погашен: не прошёл повторную проверку")
		return false
	}

	redeemed, err := s.promocodes.Redeem(ctx, promo.ID, orderID)
	if err != nil {
		log.Warn().Err(err).Msg("Промокод не погашен")
		return false
	}
	if redeemed {
		promoID := promo.ID
		comp.Add("unlink_promocode", func(ctx context.Context) error {
			return s.promocodes.Unlink(ctx, promoID, orderID)
		})
	}
	return redeemed
}
