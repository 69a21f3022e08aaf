package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// PromocodeRepository — промокоды и их погашения.
type PromocodeRepository interface {
	// GetByName возвращает промокод с количеством погашений.
	GetByName(ctx context.Context, name string) (*domain.Promocode, error)

	// Redeem в одной транзакции добавляет связь с заказом и уменьшает остаток.
	// Повторное погашение для того же заказа ничего не меняет (redeemed=false).
	Redeem(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) (redeemed bool, err error)

	// Unlink отменяет погашение: удаляет связь и возвращает использование.
	Unlink(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) error
}

type promocodeRepository struct {
	db *gorm.DB
}

// NewPromocodeRepository создаёт репозиторий промокодов.
func NewPromocodeRepository(db *gorm.DB) PromocodeRepository {
	return &promocodeRepository{db: db}
}

func (r *promocodeRepository) GetByName(ctx context.Context, name string) (*domain.Promocode, error) {
	var m PromocodeModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromocodeNotFound
		}
		return nil, err
	}

	var usages int64
	if err := r.db.WithContext(ctx).Model(&PromocodeUsageModel{}).
		Where("promocode_id = ?", m.ID).
		Count(&usages).Error; err != nil {
		return nil, err
	}

	return m.toDomain(int(usages)), nil
}

func (r *promocodeRepository) Redeem(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) (bool, error) {
	redeemed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&PromocodeUsageModel{}).
			Where("promocode_id = ? AND order_id = ?", uint64(id), uint64(orderID)).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		res := tx.Model(&PromocodeModel{}).
			Where("id = ? AND available_usages > 0", uint64(id)).
			Update("available_usages", gorm.Expr("available_usages - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrPromocodeExhausted
		}

		if err := tx.Create(&PromocodeUsageModel{PromocodeID: uint64(id), OrderID: uint64(orderID)}).Error; err != nil {
			if isDuplicateKeyError(err) {
				return errAlreadyLinked
			}
			return err
		}

		redeemed = true
		return nil
	})
	if errors.Is(err, errAlreadyLinked) {
		return false, nil
	}
	return redeemed, err
}

var errAlreadyLinked = errors.New("промокод уже привязан к заказу")

func (r *promocodeRepository) Unlink(ctx context.Context, id domain.PromocodeID, orderID domain.OrderID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("promocode_id = ? AND order_id = ?", uint64(id), uint64(orderID)).
			Delete(&PromocodeUsageModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&PromocodeModel{}).
			Where("id = ?", uint64(id)).
			Update("available_usages", gorm.Expr("available_usages + 1")).Error
	})
}
