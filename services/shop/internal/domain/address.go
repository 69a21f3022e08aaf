package domain

import "strings"

// ShippingType — способ получения заказа.
type ShippingType string

const (
	ShippingTypeShipping     ShippingType = "shipping"
	ShippingTypeSelfShipping ShippingType = "selfShipping"
)

// ParseShippingType разбирает тип доставки; пустое значение означает доставку.
func ParseShippingType(s string) (ShippingType, error) {
	switch ShippingType(strings.TrimSpace(s)) {
	case "", ShippingTypeShipping:
		return ShippingTypeShipping, nil
	case ShippingTypeSelfShipping:
		return ShippingTypeSelfShipping, nil
	default:
		return "", ErrInvalidShippingType
	}
}

func (t ShippingType) String() string {
	return string(t)
}

// Address — адрес и реквизиты покупателя. Создаётся вместе с заказом и не меняется.
type Address struct {
	ID             AddressID
	Type           ShippingType
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
