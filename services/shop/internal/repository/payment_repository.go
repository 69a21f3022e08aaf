package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"example.com/jewelry-shop/services/shop/internal/domain"
)

// ErrDuplicatePayment — у заказа уже есть платёж.
var ErrDuplicatePayment = errors.New("платёж для заказа уже существует")

// PaymentRepository — платежи. Один платёж на заказ обеспечивается уникальным индексом order_id.
type PaymentRepository interface {
	// Create возвращает ErrDuplicatePayment, если платёж по заказу уже есть.
	Create(ctx context.Context, payment *domain.Payment) error
	GetByOrderID(ctx context.Context, orderID domain.OrderID) (*domain.Payment, error)
	GetByHashID(ctx context.Context, hashID string) (*domain.Payment, error)

	// UpdateStatus сохраняет статус и даты оплаты и возврата.
	UpdateStatus(ctx context.Context, payment *domain.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository создаёт репозиторий платежей.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	m := paymentModelFromDomain(payment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return err
	}
	payment.ID = domain.PaymentID(m.ID)
	payment.CreatedAt = m.CreatedAt
	payment.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID domain.OrderID) (*domain.Payment, error) {
	return r.first(ctx, "order_id = ?", uint64(orderID))
}

func (r *paymentRepository) GetByHashID(ctx context.Context, hashID string) (*domain.Payment, error) {
	return r.first(ctx, "hash_id = ?", hashID)
}

func (r *paymentRepository) first(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var m PaymentModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, payment *domain.Payment) error {
	res := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Where("id = ?", uint64(payment.ID)).
		Updates(map[string]any{
			"payment_status": string(payment.Status),
			"payment_date":   payment.PaymentDate,
			"refund_date":    payment.RefundDate,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}
