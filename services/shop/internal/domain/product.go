package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — товар каталога.
type Product struct {
	ID          ProductID
	Slug        string
	Title       string
	Articul     string
	Description string
	Price       *decimal.Decimal // nil — цена не задана
	Stock       *int             // nil — остаток не ведётся
	IsHidden    bool
	IsActive    *bool // устаревший флаг, nil трактуется как активный
	PublishedAt *time.Time
	Categories  []Category
	Tags        []Tag
}

// Ref возвращает ссылку на товар.
func (p *Product) Ref() ProductRef {
	return ProductRef{ID: p.ID, Slug: p.Slug}
}

// CheckOrderable проверяет, что товар можно заказать.
func (p *Product) CheckOrderable() error {
	if p.IsHidden || (p.IsActive != nil && !*p.IsActive) {
		return ErrProductNotOrderable
	}
	if p.Price == nil {
		return ErrMissingPrice
	}
	return nil
}

// Category — категория каталога.
type Category struct {
	ID          uint64
	Slug        string
	Title       string
	PublishedAt *time.Time
}

// Tag — тег каталога.
type Tag struct {
	ID          uint64
	Slug        string
	Title       string
	PublishedAt *time.Time
}
