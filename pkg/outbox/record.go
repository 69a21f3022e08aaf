// Package outbox хранит события магазина в таблице outbox и пересылает их в Kafka.
// Событие записывается рядом с бизнес-данными, Relay доставляет его позже
// с гарантией at-least-once.
package outbox

import (
	"encoding/json"
	"time"
)

// Record — событие, ожидающее отправки.
type Record struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	Key           string
	Payload       []byte
	Headers       map[string]string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
	Attempts      int
	LastError     *string
}

// recordModel — GORM модель таблицы outbox.
type recordModel struct {
	ID            string     `gorm:"column:id;type:varchar(36);primaryKey"`
	AggregateType string     `gorm:"column:aggregate_type;type:varchar(50);not null;index:idx_outbox_aggregate"`
	AggregateID   string     `gorm:"column:aggregate_id;type:varchar(64);not null;index:idx_outbox_aggregate"`
	EventType     string     `gorm:"column:event_type;type:varchar(100);not null"`
	Topic         string     `gorm:"column:topic;type:varchar(100);not null"`
	MessageKey    string     `gorm:"column:message_key;type:varchar(100);not null"`
	Payload       []byte     `gorm:"column:payload;type:json;not null"`
	Headers       []byte     `gorm:"column:headers;type:json"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt   *time.Time `gorm:"column:processed_at;index:idx_outbox_pending"`
	Attempts      int        `gorm:"column:attempts;not null;default:0"`
	LastError     *string    `gorm:"column:last_error;type:text"`
}

func (recordModel) TableName() string {
	return "outbox"
}

// Model возвращает GORM модель для миграции схемы.
func Model() any {
	return &recordModel{}
}

func (m *recordModel) toDomain() *Record {
	r := &Record{
		ID:            m.ID,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		EventType:     m.EventType,
		Topic:         m.Topic,
		Key:           m.MessageKey,
		Payload:       m.Payload,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
	}
	if len(m.Headers) > 0 {
		_ = json.Unmarshal(m.Headers, &r.Headers)
	}
	return r
}

func recordModelFromDomain(r *Record) (*recordModel, error) {
	m := &recordModel{
		ID:            r.ID,
		AggregateType: r.AggregateType,
		AggregateID:   r.AggregateID,
		EventType:     r.EventType,
		Topic:         r.Topic,
		MessageKey:    r.Key,
		Payload:       r.Payload,
		CreatedAt:     r.CreatedAt,
		ProcessedAt:   r.ProcessedAt,
		Attempts:      r.Attempts,
		LastError:     r.LastError,
	}
	if len(r.Headers) > 0 {
		data, err := json.Marshal(r.Headers)
		if err != nil {
			return nil, err
		}
		m.Headers = data
	}
	return m, nil
}
