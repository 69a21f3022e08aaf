package outbox

import (
	"context"
	"time"

	"example.com/jewelry-shop/pkg/kafka"
	"example.com/jewelry-shop/pkg/logger"
)

// Publisher отправляет сообщение во внешний брокер.
type Publisher interface {
	SendMessage(ctx context.Context, msg *kafka.Message) error
}

// RelayConfig — настройки Relay.
type RelayConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxAttempts     int
	CleanupInterval time.Duration
	Retention       time.Duration
}

// DefaultRelayConfig возвращает конфигурацию по умолчанию.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval:    time.Second,
		BatchSize:       100,
		MaxAttempts:     5,
		CleanupInterval: time.Hour,
		Retention:       7 * 24 * time.Hour,
	}
}

// Relay пересылает записи outbox в Kafka. Без Publisher только чистит таблицу.
type Relay struct {
	store     Store
	publisher Publisher
	cfg       RelayConfig
}

// NewRelay создаёт Relay. publisher может быть nil, если Kafka отключена.
func NewRelay(store Store, publisher Publisher, cfg RelayConfig) *Relay {
	return &Relay{store: store, publisher: publisher, cfg: cfg}
}

// Run блокирует выполнение до отмены контекста.
func (r *Relay) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info().
		Bool("publishing", r.publisher != nil).
		Dur("poll_interval", r.cfg.PollInterval).
		Int("batch_size", r.cfg.BatchSize).
		Msg("Запуск outbox relay")

	poll := time.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()

	cleanup := time.NewTicker(r.cfg.CleanupInterval)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Остановка outbox relay")
			return
		case <-poll.C:
			if r.publisher != nil {
				r.Flush(ctx)
			}
		case <-cleanup.C:
			r.prune(ctx)
		}
	}
}

// Flush отправляет одну пачку записей и возвращает число доставленных.
func (r *Relay) Flush(ctx context.Context) int {
	log := logger.FromContext(ctx)

	records, err := r.store.Pending(ctx, r.cfg.BatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Ошибка чтения outbox")
		return 0
	}

	delivered := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			return delivered
		}

		if rec.Attempts >= r.cfg.MaxAttempts {
			log.Warn().
				Str("outbox_id", rec.ID).
				Str("event_type", rec.EventType).
				Str("aggregate_id", rec.AggregateID).
				Int("attempts", rec.Attempts).
				Msg("Превышен лимит попыток, событие выведено из очереди")
			if err := r.store.MarkProcessed(ctx, rec.ID); err != nil {
				log.Error().Err(err).Str("outbox_id", rec.ID).Msg("Ошибка пометки outbox")
			}
			continue
		}

		if r.deliver(ctx, rec) {
			delivered++
		}
	}
	return delivered
}

func (r *Relay) deliver(ctx context.Context, rec *Record) bool {
	log := logger.FromContext(ctx)

	headers := make(map[string]string, len(rec.Headers)+1)
	for k, v := range rec.Headers {
		headers[k] = v
	}
	headers[kafka.HeaderEventType] = rec.EventType

	msg := &kafka.Message{
		Topic:   rec.Topic,
		Key:     []byte(rec.Key),
		Value:   rec.Payload,
		Headers: headers,
		Time:    rec.CreatedAt,
	}

	if err := r.publisher.SendMessage(ctx, msg); err != nil {
		log.Error().Err(err).Str("outbox_id", rec.ID).Str("topic", rec.Topic).Msg("Ошибка отправки события")
		if markErr := r.store.MarkFailed(ctx, rec.ID, err); markErr != nil {
			log.Error().Err(markErr).Str("outbox_id", rec.ID).Msg("Ошибка пометки outbox как failed")
		}
		return false
	}

	if err := r.store.MarkProcessed(ctx, rec.ID); err != nil {
		log.Error().Err(err).Str("outbox_id", rec.ID).Msg("Ошибка пометки outbox как отправленной")
		return false
	}

	log.Debug().Str("outbox_id", rec.ID).Str("event_type", rec.EventType).Msg("Событие отправлено")
	return true
}

func (r *Relay) prune(ctx context.Context) {
	log := logger.FromContext(ctx)

	deleted, err := r.store.PruneProcessed(ctx, time.Now().Add(-r.cfg.Retention))
	if err != nil {
		log.Error().Err(err).Msg("Ошибка очистки outbox")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Очистка отправленных событий outbox")
	}
}
