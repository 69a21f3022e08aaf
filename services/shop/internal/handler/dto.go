package handler

import (
	"github.com/shopspring/decimal"

	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/service"
)

// CartLineRequest — строка корзины. Товар задаётся slug или id.
type CartLineRequest struct {
	ProductSlug string `json:"productSlug"`
	ProductID   uint64 `json:"productId"`
	Quantity    int    `json:"quantity"`
}

// CalculatePriceRequest — тело POST /orders/calculate-price.
type CalculatePriceRequest struct {
	Products  []CartLineRequest `json:"products"`
	Type      string            `json:"type"`
	Promocode string            `json:"promocode"`
}

// AddressRequest — реквизиты покупателя.
type AddressRequest struct {
	Type           string `json:"type"`
	IsIndividual   bool   `json:"isIndividual"`
	FullName       string `json:"fullName"`
	Organization   string `json:"organization"`
	UNP            string `json:"unp"`
	PaymentAccount string `json:"paymentAccount"`
	BankAddress    string `json:"bankAddress"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	City           string `json:"city"`
	Address        string `json:"address"`
	PostalCode     string `json:"postalCode"`
}

// InitiatePaymentRequest — тело POST /payments/initiate.
type InitiatePaymentRequest struct {
	Products      []CartLineRequest `json:"products"`
	Address       AddressRequest    `json:"address" binding:"required"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	Comment       string            `json:"comment"`
	Promocode     string            `json:"promocode"`
}

// PromocodeRequest — тело POST /promocodes/validate.
type PromocodeRequest struct {
	Name string `json:"name"`
}

// PaymentStatusRequest — тело PATCH /admin/orders/:id/payment-status.
type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// toCartLines разбирает строки корзины. Ссылка на товар разрешается один раз здесь.
func toCartLines(in []CartLineRequest) ([]service.CartLine, error) {
	lines := make([]service.CartLine, 0, len(in))
	for _, l := range in {
		var ref domain.ProductRef
		switch {
		case l.ProductSlug != "":
			ref = domain.ProductRefBySlug(l.ProductSlug)
		case l.ProductID != 0:
			ref = domain.ProductRefByID(domain.ProductID(l.ProductID))
		}
		if ref.IsZero() {
			return nil, domain.ErrInvalidProductRef
		}
		lines = append(lines, service.CartLine{Ref: ref, Quantity: l.Quantity})
	}
	return lines, nil
}

func (a AddressRequest) toInput() service.AddressInput {
	return service.AddressInput{
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

// money переводит сумму в число JSON с точностью до копеек.
func money(d decimal.Decimal) float64 {
	return domain.RoundMoney(d).InexactFloat64()
}

// PriceLineResponse — строка расчёта.
type PriceLineResponse struct {
	Slug       string  `json:"slug,omitempty"`
	ProductID  uint64  `json:"productId,omitempty"`
	Title      string  `json:"title"`
	UnitPrice  float64 `json:"unitPrice"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
}

// DiscountResponse — скидки без промокода.
type DiscountResponse struct {
	BaseDiscount         float64 `json:"baseDiscount"`
	SelfShippingDiscount float64 `json:"selfShippingDiscount"`
	TotalDiscount        float64 `json:"totalDiscount"`
	Description          string  `json:"description"`
}

// AppliedPromocodeResponse — применённый промокод.
type AppliedPromocodeResponse struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	PercentDiscount float64 `json:"percentDiscount"`
	DiscountAmount  float64 `json:"discountAmount"`
}

// PriceResponse — расчёт стоимости корзины.
type PriceResponse struct {
	Products     []PriceLineResponse       `json:"products"`
	Subtotal     float64                   `json:"subtotal"`
	ShippingCost float64                   `json:"shippingCost"`
	FreeShipping bool                      `json:"freeShipping"`
	Discount     DiscountResponse          `json:"discount"`
	Promocode    *AppliedPromocodeResponse `json:"promocode"`
	TotalAmount  float64                   `json:"totalAmount"`
	ShippingType string                    `json:"shippingType"`
}

func toPriceResponse(b pricing.Breakdown) PriceResponse {
	b = b.Rounded()

	resp := PriceResponse{
		Products:     make([]PriceLineResponse, 0, len(b.Lines)),
		Subtotal:     money(b.Subtotal),
		ShippingCost: money(b.ShippingCost),
		FreeShipping: b.FreeShippingApplied,
		Discount: DiscountResponse{
			BaseDiscount:         money(b.BaseDiscount),
			SelfShippingDiscount: money(b.SelfPickupDiscount),
			TotalDiscount:        money(b.TotalDiscount),
			Description:          b.DiscountDescription,
		},
		TotalAmount:  money(b.TotalAmount),
		ShippingType: b.ShippingType.String(),
	}

	for _, l := range b.Lines {
		resp.Products = append(resp.Products, PriceLineResponse{
			Slug:       l.Ref.Slug,
			ProductID:  uint64(l.Ref.ID),
			Title:      l.Title,
			UnitPrice:  money(l.UnitPrice),
			Quantity:   l.Quantity,
			TotalPrice: money(l.TotalPrice),
		})
	}

	if p := b.Promocode; p != nil {
		resp.Promocode = &AppliedPromocodeResponse{
			Name:            p.Name,
			Type:            string(p.Type),
			PercentDiscount: p.PercentDiscount.InexactFloat64(),
			DiscountAmount:  money(p.DiscountAmount),
		}
	}
	return resp
}

// InitiatePaymentResponse — результат оформления заказа.
type InitiatePaymentResponse struct {
	Success     bool          `json:"success"`
	OrderID     uint64        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	HashID      string        `json:"hashId,omitempty"`
	PaymentLink string        `json:"paymentLink,omitempty"`
	Price       PriceResponse `json:"price"`
}

func toInitiateResponse(res *service.CheckoutResult) InitiatePaymentResponse {
	resp := InitiatePaymentResponse{
		Success:     true,
		OrderID:     uint64(res.Order.ID),
		OrderNumber: res.Order.OrderNumber,
		Price:       toPriceResponse(res.Breakdown),
	}
	if res.Payment != nil {
		resp.HashID = res.Payment.GatewayRef
		resp.PaymentLink = res.Payment.PaymentLink
	}
	return resp
}

// TaxonomyResponse — категория или тег.
type TaxonomyResponse struct {
	ID    uint64 `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// ProductResponse — товар каталога.
type ProductResponse struct {
	ID          uint64             `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Articul     string             `json:"articul,omitempty"`
	Description string             `json:"description,omitempty"`
	Price       *float64           `json:"price"`
	Stock       *int               `json:"stock"`
	Categories  []TaxonomyResponse `json:"categories"`
	Tags        []TaxonomyResponse `json:"tags"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	resp := ProductResponse{
		ID:          uint64(p.ID),
		Slug:        p.Slug,
		Title:       p.Title,
		Articul:     p.Articul,
		Description: p.Description,
		Stock:       p.Stock,
		Categories:  make([]TaxonomyResponse, 0, len(p.Categories)),
		Tags:        make([]TaxonomyResponse, 0, len(p.Tags)),
	}
	if p.Price != nil {
		price := money(*p.Price)
		resp.Price = &price
	}
	for _, c := range p.Categories {
		resp.Categories = append(resp.Categories, TaxonomyResponse{ID: c.ID, Slug: c.Slug, Title: c.Title})
	}
	for _, t := range p.Tags {
		resp.Tags = append(resp.Tags, TaxonomyResponse{ID: t.ID, Slug: t.Slug, Title: t.Title})
	}
	return resp
}

// ProductListResponse — страница каталога.
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

// PaymentStatusResponse — результат смены статуса оплаты.
type PaymentStatusResponse struct {
	OrderID       uint64 `json:"orderId"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
	Changed       bool   `json:"changed"`
}

func toPaymentStatusResponse(res *service.ReconciliationResult) PaymentStatusResponse {
	return PaymentStatusResponse{
		OrderID:       uint64(res.Order.ID),
		OrderStatus:   string(res.Order.Status),
		PaymentStatus: string(res.Payment.Status),
		Changed:       res.Changed,
	}
}
