// Package service содержит бизнес-логику магазина: оформление заказа, платежи,
// сверку статусов оплаты, промокоды и чтение каталога.
package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/jewelry-shop/pkg/logger"
	"example.com/jewelry-shop/services/shop/internal/domain"
	"example.com/jewelry-shop/services/shop/internal/pricing"
	"example.com/jewelry-shop/services/shop/internal/repository"
)

// Константы пагинации каталога.
const (
	defaultPage     = 1
	defaultPageSize = 24
	maxPageSize     = 100
)

// CartLine — строка корзины от клиента.
type CartLine struct {
	Ref      domain.ProductRef
	Quantity int
}

// ProductPage — страница товаров.
type ProductPage struct {
	Products []*domain.Product
	Total    int64
	Page     int
	PageSize int
}

// ListProductsInput — параметры выборки товаров.
type ListProductsInput struct {
	CategorySlug string
	Page         int
	PageSize     int
}

// CatalogService — чтение каталога.
type CatalogService interface {
	ListProducts(ctx context.Context, in ListProductsInput) (*ProductPage, error)
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
}

type catalogService struct {
	repo repository.CatalogRepository
}

// NewCatalogService создаёт сервис каталога.
func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListProducts(ctx context.Context, in ListProductsInput) (*ProductPage, error) {
	page, pageSize := normalizePagination(in.Page, in.PageSize)

	products, total, err := s.repo.ListPublished(ctx, repository.ProductFilter{
		CategorySlug: in.CategorySlug,
		Offset:       (page - 1) * pageSize,
		Limit:        pageSize,
	})
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Ошибка получения списка товаров")
		return nil, fmt.Errorf("ошибка получения списка товаров: %w", err)
	}

	return &ProductPage{Products: products, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, domain.NewValidationError("slug", "не указан slug товара")
	}
	p, err := s.repo.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения товара: %w", err)
	}
	return p, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения категорий: %w", err)
	}
	return categories, nil
}

func (s *catalogService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения тегов: %w", err)
	}
	return tags, nil
}

func normalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// resolvedLine — строка корзины с найденным товаром.
type resolvedLine struct {
	Product  *domain.Product
	Quantity int
}

// resolveCart находит товары корзины и проверяет, что их можно заказать.
// Каждая ссылка разрешается один раз.
func resolveCart(ctx context.Context, catalog repository.CatalogRepository, lines []CartLine) ([]resolvedLine, []pricing.Line, error) {
	if len(lines) == 0 {
		return nil, nil, domain.ErrEmptyCart
	}

	resolved := make([]resolvedLine, 0, len(lines))
	priced := make([]pricing.Line, 0, len(lines))

	for _, l := range lines {
		if l.Ref.IsZero() {
			return nil, nil, domain.ErrInvalidProductRef
		}
		if l.Quantity <= 0 {
			return nil, nil, &domain.ProductError{Ref: l.Ref, Err: domain.ErrInvalidQuantity}
		}

		p, err := catalog.GetByRef(ctx, l.Ref)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, nil, &domain.ProductError{Ref: l.Ref, Err: domain.ErrProductNotFound}
			}
			return nil, nil, fmt.Errorf("ошибка получения товара %s: %w", l.Ref, err)
		}
		if err := p.CheckOrderable(); err != nil {
			return nil, nil, &domain.ProductError{Ref: l.Ref, Err: err}
		}

		resolved = append(resolved, resolvedLine{Product: p, Quantity: l.Quantity})
		priced = append(priced, pricing.Line{
			Ref:       p.Ref(),
			Title:     p.Title,
			UnitPrice: *p.Price,
			Quantity:  l.Quantity,
		})
	}

	return resolved, priced, nil
}
