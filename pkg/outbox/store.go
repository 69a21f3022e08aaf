package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRecordNotFound — запись outbox не найдена.
var ErrRecordNotFound = errors.New("запись outbox не найдена")

// Store — доступ к таблице outbox.
type Store interface {
	Append(ctx context.Context, record *Record) error
	Pending(ctx context.Context, limit int) ([]*Record, error)
	MarkProcessed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, err error) error
	PruneProcessed(ctx context.Context, before time.Time) (int64, error)
}

type gormStore struct {
	db            *gorm.DB
	aggregateType string
}

// NewStore создаёт GORM хранилище outbox для одного типа агрегата.
func NewStore(db *gorm.DB, aggregateType string) Store {
	return &gormStore{db: db, aggregateType: aggregateType}
}

// Append сохраняет событие. Пустые ID и AggregateType заполняются автоматически.
func (s *gormStore) Append(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AggregateType == "" {
		record.AggregateType = s.aggregateType
	}

	model, err := recordModelFromDomain(record)
	if err != nil {
		return fmt.Errorf("ошибка сериализации headers: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	record.CreatedAt = model.CreatedAt
	return nil
}

// Pending возвращает неотправленные записи: сначала с меньшим числом попыток, затем старые.
func (s *gormStore) Pending(ctx context.Context, limit int) ([]*Record, error) {
	var models []recordModel

	if err := s.db.WithContext(ctx).
		Where("processed_at IS NULL AND aggregate_type = ?", s.aggregateType).
		Order("attempts ASC, created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*Record, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

func (s *gormStore) MarkProcessed(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&recordModel{}).
		Where("id = ?", id).
		Update("processed_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) MarkFailed(ctx context.Context, id string, cause error) error {
	res := s.db.WithContext(ctx).Model(&recordModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// PruneProcessed удаляет до 1000 отправленных записей старше before.
func (s *gormStore) PruneProcessed(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ? AND aggregate_type = ?", before, s.aggregateType).
		Limit(1000).
		Delete(&recordModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
