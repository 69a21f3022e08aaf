package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// ProductFilter — параметры выборки опубликованных товаров.
type ProductFilter struct {
	CategorySlug string
	Offset       int
	Limit        int
}

// CatalogRepository — товары, категории, теги и остатки.
type CatalogRepository interface {
	// GetByRef находит товар по slug или id без фильтра публикации.
	GetByRef(ctx context.Context, ref domain.ProductRef) (*domain.Product, error)

	// GetPublishedBySlug возвращает опубликованный и не скрытый товар с категориями и тегами.
	GetPublishedBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// ListPublished возвращает страницу опубликованных товаров и общее количество.
	ListPublished(ctx context.Context, f ProductFilter) ([]*domain.Product, int64, error)

	ListCategories(ctx context.Context) ([]*domain.Category, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)

	// ReserveStock уменьшает остаток, не опуская его ниже нуля.
	// Товар без учёта остатка не меняется; reserved=false.
	ReserveStock(ctx context.Context, id domain.ProductID, quantity int) (reserved bool, err error)

	// RestoreStock возвращает резерв. restored=false, если товара нет или остаток не ведётся.
	RestoreStock(ctx context.Context, id domain.ProductID, quantity int) (restored bool, err error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository создаёт репозиторий каталога.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetByRef(ctx context.Context, ref domain.ProductRef) (*domain.Product, error) {
	if ref.IsZero() {
		return nil, domain.ErrInvalidProductRef
	}

	q := r.db.WithContext(ctx)
	if ref.ID != 0 {
		q = q.Where("id = ?", uint64(ref.ID))
	} else {
		q = q.Where("slug = ?", ref.Slug)
	}

	var m ProductModel
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var m ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Tags").
		Where("slug = ? AND published_at IS NOT NULL AND is_hidden = ?", slug, false).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *catalogRepository) ListPublished(ctx context.Context, f ProductFilter) ([]*domain.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("products.published_at IS NOT NULL AND products.is_hidden = ?", false)

	if f.CategorySlug != "" {
		q = q.Joins("JOIN product_categories ON product_categories.product_id = products.id").
			Joins("JOIN categories ON categories.id = product_categories.category_id").
			Where("categories.slug = ?", f.CategorySlug)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Distinct("products.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []ProductModel
	if err := q.Session(&gorm.Session{}).
		Select("products.*").
		Preload("Categories").
		Preload("Tags").
		Order("products.id DESC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Product, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, total, nil
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	var models []CategoryModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Order("title ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.Category, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

func (r *catalogRepository) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	var models []TagModel
	if err := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL").
		Order("title ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.Tag, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

// ReserveStock выполняется одним UPDATE без чтения остатка.
func (r *catalogRepository) ReserveStock(ctx context.Context, id domain.ProductID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock IS NOT NULL", uint64(id)).
		Update("stock", gorm.Expr("GREATEST(stock - ?, 0)", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *catalogRepository) RestoreStock(ctx context.Context, id domain.ProductID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ? AND stock IS NOT NULL", uint64(id)).
		Update("stock", gorm.Expr("GREATEST(stock + ?, 0)", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
