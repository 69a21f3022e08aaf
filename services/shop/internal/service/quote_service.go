package service

import (
	"context"
	"fmt"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// QuoteInput — запрос расчёта стоимости.
type QuoteInput struct {
	Lines         []CartLine
	ShippingType  domain.ShippingType
	PromocodeName string
}

// QuoteService считает стоимость корзины без сохранения.
type QuoteService interface {
	Calculate(ctx context.Context, in QuoteInput) (pricing.Breakdown, error)
}

type quoteService struct {
	catalog    repository.CatalogRepository
	promocodes repository.PromocodeRepository
	clock      domain.Clock
}

// NewQuoteService создаёт сервис расчёта.
func NewQuoteService(catalog repository.CatalogRepository, promocodes repository.PromocodeRepository, clock domain.Clock) QuoteService {
	return &quoteService{catalog: catalog, promocodes: promocodes, clock: clock}
}

// Calculate возвращает разбивку стоимости, округлённую до копеек.
func (s *quoteService) Calculate(ctx context.Context, in QuoteInput) (pricing.Breakdown, error) {
	_, lines, err := resolveCart(ctx, s.catalog, in.Lines)
	if err != nil {
		return pricing.Breakdown{}, err
	}

	promo := lookupPromocode(ctx, s.promocodes, in.PromocodeName)

	b, err := pricing.Compute(lines, in.ShippingType, promo, s.clock.Now())
	if err != nil {
		return pricing.Breakdown{}, fmt.Errorf("ошибка расчёта стоимости: %w", err)
	}

	if b.PromocodeRejection != nil {
		log := logger.FromContext(ctx)
		log.Info().
			Err(b.PromocodeRejection).
			Str("promocode", in.PromocodeName).
			Msg("Промокод не применён")
	}

	return b.Rounded(), nil
}
