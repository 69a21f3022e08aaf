package testutil

import (
	"context"
	"sync"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// =============================================================================
// In-memory хранилища для сценариев из нескольких шагов
// =============================================================================

// MemoryCatalog — каталог в памяти. Остатки меняются так же, как в MySQL:
// не ниже нуля, товары без остатка не затрагиваются.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[domain.ProductID]domain.Product
}

var _ repository.CatalogRepository = (*MemoryCatalog)(nil)

// NewMemoryCatalog создаёт каталог с копиями переданных товаров.
func NewMemoryCatalog(products ...*domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[domain.ProductID]domain.Product, len(products))}
	for _, p := range products {
		cp := *p
		if p.Stock != nil {
			stock := *p.Stock
			cp.Stock = &stock
		}
		c.products[p.ID] = cp
	}
	return c
}

// Stock возвращает текущий остаток товара, nil — остаток не ведётся.
func (c *MemoryCatalog) Stock(id domain.ProductID) *int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok || p.Stock == nil {
		return nil
	}
	stock := *p.Stock
	return &stock
}

// product возвращает копию товара вместе с остатком.
func (c *MemoryCatalog) product(id domain.ProductID) (*domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, false
	}
	if p.Stock != nil {
		stock := *p.Stock
		p.Stock = &stock
	}
	return &p, true
}

func (c *MemoryCatalog) GetByRef(_ context.Context, ref domain.ProductRef) (*domain.Product, error) {
	if ref.IsZero() {
		return nil, domain.ErrInvalidProductRef
	}
	if ref.ID != 0 {
		if p, ok := c.product(ref.ID); ok {
			return p, nil
		}
		return nil, domain.ErrProductNotFound
	}

	c.mu.RLock()
	var id domain.ProductID
	for _, p := range c.products {
		if p.Slug == ref.Slug {
			id = p.ID
			break
		}
	}
	c.mu.RUnlock()

	if p, ok := c.product(id); ok {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

func (c *MemoryCatalog) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := c.GetByRef(ctx, domain.ProductRefBySlug(slug))
	if err != nil {
		return nil, err
	}
	if p.PublishedAt == nil || p.IsHidden {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) ListPublished(ctx context.Context, _ repository.ProductFilter) ([]*domain.Product, int64, error) {
	c.mu.RLock()
	ids := make([]domain.ProductID, 0, len(c.products))
	for id, p := range c.products {
		if p.PublishedAt != nil && !p.IsHidden {
			ids = append(ids, id)
		}
	}
	c.mu.RUnlock()

	out := make([]*domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.product(id); ok {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (c *MemoryCatalog) ListCategories(context.Context) ([]*domain.Category, error) {
	return nil, nil
}

func (c *MemoryCatalog) ListTags(context.Context) ([]*domain.Tag, error) {
	return nil, nil
}

func (c *MemoryCatalog) ReserveStock(_ context.Context, id domain.ProductID, quantity int) (bool, error) {
	return c.adjustStock(id, -quantity), nil
}

func (c *MemoryCatalog) RestoreStock(_ context.Context, id domain.ProductID, quantity int) (bool, error) {
	return c.adjustStock(id, quantity), nil
}

func (c *MemoryCatalog) adjustStock(id domain.ProductID, delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok || p.Stock == nil {
		return false
	}
	stock := max(*p.Stock+delta, 0)
	p.Stock = &stock
	c.products[id] = p
	return true
}

// MemoryOrders — заказы, позиции и адреса в памяти. GetByID подставляет
// в позиции товары из каталога.
type MemoryOrders struct {
	mu        sync.RWMutex
	catalog   *MemoryCatalog
	nextID    domain.OrderID
	nextAddr  domain.AddressID
	orders    map[domain.OrderID]domain.Order
	addresses map[domain.AddressID]domain.Address
}

var _ repository.OrderRepository = (*MemoryOrders)(nil)

// NewMemoryOrders создаёт хранилище заказов. Первый заказ получает id 1.
func NewMemoryOrders(catalog *MemoryCatalog) *MemoryOrders {
	return &MemoryOrders{
		catalog:   catalog,
		nextID:    1,
		nextAddr:  1,
		orders:    make(map[domain.OrderID]domain.Order),
		addresses: make(map[domain.AddressID]domain.Address),
	}
}

// Count возвращает количество сохранённых заказов.
func (m *MemoryOrders) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *MemoryOrders) CreateAddress(_ context.Context, address *domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	address.ID = m.nextAddr
	m.nextAddr++
	m.addresses[address.ID] = *address
	return nil
}

func (m *MemoryOrders) DeleteAddress(_ context.Context, id domain.AddressID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.addresses, id)
	return nil
}

func (m *MemoryOrders) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.nextID
	m.nextID++
	stored := *order
	stored.Address = nil
	stored.Items = nil
	m.orders[order.ID] = stored
	return nil
}

func (m *MemoryOrders) CreateItems(_ context.Context, orderID domain.OrderID, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for _, item := range items {
		item.OrderID = orderID
		item.Product = nil
		o.Items = append(o.Items, item)
	}
	m.orders[orderID] = o
	return nil
}

func (m *MemoryOrders) Delete(_ context.Context, id domain.OrderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *MemoryOrders) GetByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	m.mu.RLock()
	o, ok := m.orders[id]
	var address *domain.Address
	if a, found := m.addresses[o.AddressID]; found {
		address = &a
	}
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	o.Address = address
	items := make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		if p, found := m.catalog.product(item.ProductID); found {
			item.Product = p
		}
		items[i] = item
	}
	o.Items = items
	return &o, nil
}

func (m *MemoryOrders) SetHashID(_ context.Context, id domain.OrderID, hashID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.HasGatewayRef() {
		return repository.ErrHashIDAlreadySet
	}
	o.HashID = &hashID
	m.orders[id] = o
	return nil
}

func (m *MemoryOrders) UpdateStatus(_ context.Context, id domain.OrderID, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

// MemoryPayments — платежи в памяти, не более одного на заказ.
type MemoryPayments struct {
	mu       sync.RWMutex
	nextID   domain.PaymentID
	payments map[domain.PaymentID]domain.Payment
}

var _ repository.PaymentRepository = (*MemoryPayments)(nil)

// NewMemoryPayments создаёт пустое хранилище платежей.
func NewMemoryPayments() *MemoryPayments {
	return &MemoryPayments{nextID: 1, payments: make(map[domain.PaymentID]domain.Payment)}
}

func (m *MemoryPayments) Create(_ context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == payment.OrderID {
			return repository.ErrDuplicatePayment
		}
	}
	payment.ID = m.nextID
	m.nextID++
	m.payments[payment.ID] = *payment
	return nil
}

func (m *MemoryPayments) find(match func(p domain.Payment) bool) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if match(p) {
			return &p, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MemoryPayments) GetByOrderID(_ context.Context, orderID domain.OrderID) (*domain.Payment, error) {
	return m.find(func(p domain.Payment) bool { return p.OrderID == orderID })
}

func (m *MemoryPayments) GetByHashID(_ context.Context, hashID string) (*domain.Payment, error) {
	return m.find(func(p domain.Payment) bool { return p.HashID != nil && *p.HashID == hashID })
}

func (m *MemoryPayments) UpdateStatus(_ context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[payment.ID]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = payment.Status
	p.PaymentDate = payment.PaymentDate
	p.RefundDate = payment.RefundDate
	m.payments[payment.ID] = p
	return nil
}

// MemoryPromocodes — промокоды в памяти. Погашение уменьшает остаток
// и добавляет связь с заказом, как в MySQL.
type MemoryPromocodes struct {
	mu     sync.RWMutex
	promos map[domain.PromocodeID]domain.Promocode
	usages map[domain.PromocodeID]map[domain.OrderID]struct{}
}

var _ repository.PromocodeRepository = (*MemoryPromocodes)(nil)

// NewMemoryPromocodes создаёт хранилище с копиями промокодов без погашений.
func NewMemoryPromocodes(promos ...*domain.Promocode) *MemoryPromocodes {
	m := &MemoryPromocodes{
		promos: make(map[domain.PromocodeID]domain.Promocode, len(promos)),
		usages: make(map[domain.PromocodeID]map[domain.OrderID]struct{}, len(promos)),
	}
	for _, p := range promos {
		m.promos[p.ID] = *p
		m.usages[p.ID] = make(map[domain.OrderID]struct{})
	}
	return m
}

func (m *MemoryPromocodes) GetByName(_ context.Context, name string) (*domain.Promocode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, p := range m.promos {
		if p.Name == name {
			p.UsageCount = len(m.usages[id])
			return &p, nil
		}
	}
	return nil, domain.ErrPromocodeNotFound
}

func (m *MemoryPromocodes) Redeem(_ context.Context, id domain.PromocodeID, orderID domain.OrderID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promos[id]
	if !ok {
		return false, domain.ErrPromocodeNotFound
	}
	if _, linked := m.usages[id][orderID]; linked {
		return false, nil
	}
	if p.AvailableUsages <= 0 {
		return false, domain.ErrPromocodeExhausted
	}
	p.AvailableUsages--
	m.promos[id] = p
	m.usages[id][orderID] = struct{}{}
	return true, nil
}

func (m *MemoryPromocodes) Unlink(_ context.Context, id domain.PromocodeID, orderID domain.OrderID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, linked := m.usages[id][orderID]; !linked {
		return nil
	}
	delete(m.usages[id], orderID)
	p := m.promos[id]
	p.AvailableUsages++
	m.promos[id] = p
	return nil
}
