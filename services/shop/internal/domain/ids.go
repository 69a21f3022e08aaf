package domain

import (
	"strconv"
	"strings"
)

type (
	ProductID   uint64
	OrderID     uint64
	PaymentID   uint64
	AddressID   uint64
	PromocodeID uint64
)

func (id OrderID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseOrderID разбирает десятичный id заказа.
func ParseOrderID(s string) (OrderID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || v == 0 {
		return 0, NewValidationError("orderId", "некорректный id заказа")
	}
	return OrderID(v), nil
}

// ProductRef ссылается на товар по slug или числовому id.
// Разбирается один раз на границе HTTP и разрешается один раз репозиторием каталога.
type ProductRef struct {
	ID   ProductID
	Slug string
}

// ProductRefBySlug создаёт ссылку по slug.
func ProductRefBySlug(slug string) ProductRef {
	return ProductRef{Slug: strings.TrimSpace(slug)}
}

// ProductRefByID создаёт ссылку по id.
func ProductRefByID(id ProductID) ProductRef {
	return ProductRef{ID: id}
}

// IsZero возвращает true, если ссылка пустая.
func (r ProductRef) IsZero() bool {
	return r.ID == 0 && r.Slug == ""
}

func (r ProductRef) String() string {
	if r.Slug != "" {
		return r.Slug
	}
	return "#" + strconv.FormatUint(uint64(r.ID), 10)
}
