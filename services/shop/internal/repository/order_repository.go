package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// ErrHashIDAlreadySet — у заказа уже есть ссылка платёжного шлюза.
var ErrHashIDAlreadySet = errors.New("hash_id заказа уже установлен")

// OrderRepository — заказы, их позиции и адреса.
type OrderRepository interface {
	CreateAddress(ctx context.Context, address *domain.Address) error
	DeleteAddress(ctx context.Context, id domain.AddressID) error

	// Create сохраняет заказ без позиций.
	Create(ctx context.Context, order *domain.Order) error

	// CreateItems сохраняет позиции заказа в одной транзакции.
	CreateItems(ctx context.Context, orderID domain.OrderID, items []domain.OrderItem) error

	// Delete удаляет заказ вместе с позициями.
	Delete(ctx context.Context, id domain.OrderID) error

	// GetByID возвращает заказ с адресом, позициями и товарами позиций.
	GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)

	// SetHashID задаёт ссылку шлюза, если она ещё не задана.
	SetHashID(ctx context.Context, id domain.OrderID, hashID string) error

	UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository создаёт репозиторий заказов.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateAddress(ctx context.Context, address *domain.Address) error {
	m := addressModelFromDomain(address)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	address.ID = domain.AddressID(m.ID)
	address.Type = domain.ShippingType(m.Type)
	return nil
}

func (r *orderRepository) DeleteAddress(ctx context.Context, id domain.AddressID) error {
	return r.db.WithContext(ctx).Delete(&AddressModel{}, uint64(id)).Error
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	m := orderModelFromDomain(order)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("номер заказа %s уже занят: %w", order.OrderNumber, err)
		}
		return err
	}
	order.ID = domain.OrderID(m.ID)
	order.CreatedAt = m.CreatedAt
	order.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *orderRepository) CreateItems(ctx context.Context, orderID domain.OrderID, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]*OrderItemModel, len(items))
	for i := range items {
		models[i] = orderItemModelFromDomain(orderID, &items[i])
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&models).Error
	})
	if err != nil {
		return err
	}

	for i := range items {
		items[i].ID = models[i].ID
		items[i].OrderID = orderID
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id domain.OrderID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", uint64(id)).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&OrderModel{}, uint64(id)).Error
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	var m OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Address").
		Preload("Items.Product").
		Where("id = ?", uint64(id)).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *orderRepository) SetHashID(ctx context.Context, id domain.OrderID, hashID string) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ? AND (hash_id IS NULL OR hash_id = ?)", uint64(id), hashID).
		Updates(map[string]any{
			"hash_id":    hashID,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrHashIDAlreadySet
	}
	return nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("id = ?", uint64(id)).
		Updates(map[string]any{
			"order_status": string(status),
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
