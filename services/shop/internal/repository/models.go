// Package repository содержит GORM модели и репозитории магазина.
package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// ProductModel — GORM модель таблицы products.
type ProductModel struct {
	ID          uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	Slug        string              `gorm:"column:slug;type:varchar(255);not null;uniqueIndex"`
	Title       string              `gorm:"column:title;type:varchar(255);not null"`
	Articul     string              `gorm:"column:articul;type:varchar(100)"`
	Description string              `gorm:"column:description;type:text"`
	Price       decimal.NullDecimal `gorm:"column:price;type:decimal(12,2)"`
	Stock       *int                `gorm:"column:stock"`
	IsHidden    bool                `gorm:"column:is_hidden;not null;default:false"`
	IsActive    *bool               `gorm:"column:is_active"`
	PublishedAt *time.Time          `gorm:"column:published_at;index"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	Categories  []CategoryModel     `gorm:"many2many:product_categories;joinForeignKey:ProductID;joinReferences:CategoryID"`
	Tags        []TagModel          `gorm:"many2many:product_tags;joinForeignKey:ProductID;joinReferences:TagID"`
}

func (ProductModel) TableName() string { return "products" }

// CategoryModel — GORM модель таблицы categories.
type CategoryModel struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	Slug        string     `gorm:"column:slug;type:varchar(255);not null;uniqueIndex"`
	Title       string     `gorm:"column:title;type:varchar(255);not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (CategoryModel) TableName() string { return "categories" }

// TagModel — GORM модель таблицы tags.
type TagModel struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	Slug        string     `gorm:"column:slug;type:varchar(255);not null;uniqueIndex"`
	Title       string     `gorm:"column:title;type:varchar(255);not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (TagModel) TableName() string { return "tags" }

// AddressModel — GORM модель таблицы addresses.
type AddressModel struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Type           string    `gorm:"column:type;type:varchar(20);not null;default:shipping"`
	IsIndividual   bool      `gorm:"column:is_individual;not null;default:true"`
	FullName       string    `gorm:"column:full_name;type:varchar(255)"`
	Organization   string    `gorm:"column:organization;type:varchar(255)"`
	UNP            string    `gorm:"column:unp;type:varchar(32)"`
	PaymentAccount string    `gorm:"column:payment_account;type:varchar(64)"`
	BankAddress    string    `gorm:"column:bank_address;type:varchar(512)"`
	Email          string    `gorm:"column:email;type:varchar(255)"`
	Phone          string    `gorm:"column:phone;type:varchar(64)"`
	City           string    `gorm:"column:city;type:varchar(128)"`
	Address        string    `gorm:"column:address;type:varchar(512)"`
	PostalCode     string    `gorm:"column:postal_code;type:varchar(32)"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (AddressModel) TableName() string { return "addresses" }

// OrderModel — GORM модель таблицы orders.
type OrderModel struct {
	ID            uint64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber   string           `gorm:"column:order_number;type:varchar(32);not null;uniqueIndex"`
	OrderStatus   string           `gorm:"column:order_status;type:varchar(20);not null;index"`
	OrderDate     time.Time        `gorm:"column:order_date;not null"`
	Subtotal      decimal.Decimal  `gorm:"column:subtotal;type:decimal(12,2);not null"`
	ShippingCost  decimal.Decimal  `gorm:"column:shipping_cost;type:decimal(12,2);not null"`
	Discount      decimal.Decimal  `gorm:"column:discount;type:decimal(12,2);not null"`
	TotalAmount   decimal.Decimal  `gorm:"column:total_amount;type:decimal(12,2);not null"`
	ShippingType  string           `gorm:"column:shipping_type;type:varchar(20);not null"`
	PaymentMethod string           `gorm:"column:payment_method;type:varchar(20)"`
	Comment       string           `gorm:"column:comment;type:text"`
	HashID        *string          `gorm:"column:hash_id;type:varchar(64);uniqueIndex"`
	AddressID     uint64           `gorm:"column:address_id;not null;index"`
	Address       *AddressModel    `gorm:"foreignKey:AddressID"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel — GORM модель таблицы order_items.
type OrderItemModel struct {
	ID         uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    uint64          `gorm:"column:order_id;not null;index"`
	ProductID  uint64          `gorm:"column:product_id;not null;index"`
	Product    *ProductModel   `gorm:"foreignKey:ProductID"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:decimal(12,2);not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// PaymentModel — GORM модель таблицы payments.
type PaymentModel struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       uint64          `gorm:"column:order_id;not null;uniqueIndex"`
	PaymentMethod string          `gorm:"column:payment_method;type:varchar(20);not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	PaymentStatus string          `gorm:"column:payment_status;type:varchar(20);not null;index"`
	HashID        *string         `gorm:"column:hash_id;type:varchar(64);uniqueIndex"`
	PaymentLink   *string         `gorm:"column:payment_link;type:varchar(1024)"`
	PaymentDate   *time.Time      `gorm:"column:payment_date"`
	RefundDate    *time.Time      `gorm:"column:refund_date"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (PaymentModel) TableName() string { return "payments" }

// PromocodeModel — GORM модель таблицы promocodes.
type PromocodeModel struct {
	ID              uint64          `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string          `gorm:"column:name;type:varchar(100);not null;uniqueIndex"`
	Type            string          `gorm:"column:type;type:varchar(20);not null"`
	PercentDiscount decimal.Decimal `gorm:"column:percent_discount;type:decimal(5,2);not null"`
	AvailableUsages int             `gorm:"column:available_usages;not null;default:0"`
	IsActual        bool            `gorm:"column:is_actual;not null;default:true"`
	ValidUntil      *time.Time      `gorm:"column:valid_until"`
	PublishedAt     *time.Time      `gorm:"column:published_at"`
}

func (PromocodeModel) TableName() string { return "promocodes" }

// PromocodeUsageModel — связь промокода с заказом, в котором он погашен.
type PromocodeUsageModel struct {
	PromocodeID uint64    `gorm:"column:promocode_id;primaryKey"`
	OrderID     uint64    `gorm:"column:order_id;primaryKey;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (PromocodeUsageModel) TableName() string { return "promocode_usages" }

// Models возвращает все модели для миграции схемы.
func Models() []any {
	return []any{
		&CategoryModel{},
		&TagModel{},
		&ProductModel{},
		&AddressModel{},
		&OrderModel{},
		&OrderItemModel{},
		&PaymentModel{},
		&PromocodeModel{},
		&PromocodeUsageModel{},
	}
}

func (m *ProductModel) toDomain() *domain.Product {
	p := &domain.Product{
		ID:          domain.ProductID(m.ID),
		Slug:        m.Slug,
		Title:       m.Title,
		Articul:     m.Articul,
		Description: m.Description,
		Stock:       m.Stock,
		IsHidden:    m.IsHidden,
		IsActive:    m.IsActive,
		PublishedAt: m.PublishedAt,
	}
	if m.Price.Valid {
		price := m.Price.Decimal
		p.Price = &price
	}
	for _, c := range m.Categories {
		p.Categories = append(p.Categories, *c.toDomain())
	}
	for _, t := range m.Tags {
		p.Tags = append(p.Tags, *t.toDomain())
	}
	return p
}

func (m *CategoryModel) toDomain() *domain.Category {
	return &domain.Category{ID: m.ID, Slug: m.Slug, Title: m.Title, PublishedAt: m.PublishedAt}
}

func (m *TagModel) toDomain() *domain.Tag {
	return &domain.Tag{ID: m.ID, Slug: m.Slug, Title: m.Title, PublishedAt: m.PublishedAt}
}

func (m *AddressModel) toDomain() *domain.Address {
	return &domain.Address{
		ID:             domain.AddressID(m.ID),
		Type:           domain.ShippingType(m.Type),
		IsIndividual:   m.IsIndividual,
		FullName:       m.FullName,
		Organization:   m.Organization,
		UNP:            m.UNP,
		PaymentAccount: m.PaymentAccount,
		BankAddress:    m.BankAddress,
		Email:          m.Email,
		Phone:          m.Phone,
		City:           m.City,
		Address:        m.Address,
		PostalCode:     m.PostalCode,
	}
}

func addressModelFromDomain(a *domain.Address) *AddressModel {
	typ := a.Type
	if typ == "" {
		typ = domain.ShippingTypeShipping
	}
	return &AddressModel{
		ID:             uint64(a.ID),
		Type:           string(typ),
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

func (m *OrderModel) toDomain() *domain.Order {
	o := &domain.Order{
		ID:            domain.OrderID(m.ID),
		OrderNumber:   m.OrderNumber,
		Status:        domain.OrderStatus(m.OrderStatus),
		OrderDate:     m.OrderDate,
		Subtotal:      m.Subtotal,
		ShippingCost:  m.ShippingCost,
		Discount:      m.Discount,
		TotalAmount:   m.TotalAmount,
		ShippingType:  domain.ShippingType(m.ShippingType),
		PaymentMethod: domain.PaymentMethod(m.PaymentMethod),
		Comment:       m.Comment,
		HashID:        m.HashID,
		AddressID:     domain.AddressID(m.AddressID),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Address != nil {
		o.Address = m.Address.toDomain()
	}
	for i := range m.Items {
		o.Items = append(o.Items, *m.Items[i].toDomain())
	}
	return o
}

func orderModelFromDomain(o *domain.Order) *OrderModel {
	return &OrderModel{
		ID:            uint64(o.ID),
		OrderNumber:   o.OrderNumber,
		OrderStatus:   string(o.Status),
		OrderDate:     o.OrderDate,
		Subtotal:      domain.RoundMoney(o.Subtotal),
		ShippingCost:  domain.RoundMoney(o.ShippingCost),
		Discount:      domain.RoundMoney(o.Discount),
		TotalAmount:   domain.RoundMoney(o.TotalAmount),
		ShippingType:  string(o.ShippingType),
		PaymentMethod: string(o.PaymentMethod),
		Comment:       o.Comment,
		HashID:        o.HashID,
		AddressID:     uint64(o.AddressID),
	}
}

func (m *OrderItemModel) toDomain() *domain.OrderItem {
	item := &domain.OrderItem{
		ID:         m.ID,
		OrderID:    domain.OrderID(m.OrderID),
		ProductID:  domain.ProductID(m.ProductID),
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		TotalPrice: m.TotalPrice,
	}
	if m.Product != nil {
		item.Product = m.Product.toDomain()
	}
	return item
}

func orderItemModelFromDomain(orderID domain.OrderID, it *domain.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		OrderID:    uint64(orderID),
		ProductID:  uint64(it.ProductID),
		Quantity:   it.Quantity,
		UnitPrice:  domain.RoundMoney(it.UnitPrice),
		TotalPrice: domain.RoundMoney(it.TotalPrice),
	}
}

func (m *PaymentModel) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:          domain.PaymentID(m.ID),
		OrderID:     domain.OrderID(m.OrderID),
		Method:      domain.PaymentMethod(m.PaymentMethod),
		Amount:      m.Amount,
		Status:      domain.PaymentStatus(m.PaymentStatus),
		HashID:      m.HashID,
		PaymentLink: m.PaymentLink,
		PaymentDate: m.PaymentDate,
		RefundDate:  m.RefundDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func paymentModelFromDomain(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
		ID:            uint64(p.ID),
		OrderID:       uint64(p.OrderID),
		PaymentMethod: string(p.Method),
		Amount:        domain.RoundMoney(p.Amount),
		PaymentStatus: string(p.Status),
		HashID:        p.HashID,
		PaymentLink:   p.PaymentLink,
		PaymentDate:   p.PaymentDate,
		RefundDate:    p.RefundDate,
	}
}

func (m *PromocodeModel) toDomain(usages int) *domain.Promocode {
	return &domain.Promocode{
		ID:              domain.PromocodeID(m.ID),
		Name:            m.Name,
		Type:            domain.PromocodeType(m.Type),
		PercentDiscount: m.PercentDiscount,
		AvailableUsages: m.AvailableUsages,
		IsActual:        m.IsActual,
		ValidUntil:      m.ValidUntil,
		PublishedAt:     m.PublishedAt,
		UsageCount:      usages,
	}
}

// isDuplicateKeyError проверяет нарушение уникального индекса (MySQL 1062).
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "1062")
}
