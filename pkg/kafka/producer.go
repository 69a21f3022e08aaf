package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/jewelry-shop/pkg/logger"
)

// Writer — часть kafka.Writer, которую использует Producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer отправляет сообщения в Kafka, дополняя headers трассировкой из контекста.
type Producer struct {
	writer Writer
}

// NewProducer создаёт синхронный producer с подтверждением от лидера партиции.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}

	logger.Info().Strs("brokers", cfg.Brokers).Msg("Создан Kafka Producer")

	return &Producer{writer: writer}, nil
}

// NewProducerWithWriter создаёт producer поверх готового writer.
func NewProducerWithWriter(w Writer) *Producer {
	return &Producer{writer: w}
}

// SendMessage отправляет сообщение. Ключ заказа гарантирует порядок событий
// одного заказа в пределах партиции (балансировщик Hash).
func (p *Producer) SendMessage(ctx context.Context, msg *Message) error {
	if msg.Headers == nil {
		msg.Headers = make(map[string]string, 3)
	}
	if _, ok := msg.Headers[HeaderTraceID]; !ok {
		if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
			msg.Headers[HeaderTraceID] = traceID
		}
	}
	if _, ok := msg.Headers[HeaderCorrelationID]; !ok {
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			msg.Headers[HeaderCorrelationID] = correlationID
		}
	}
	if _, ok := msg.Headers[HeaderTimestamp]; !ok {
		msg.Headers[HeaderTimestamp] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if err := p.writer.WriteMessages(ctx, msg.toKafkaMessage()); err != nil {
		return fmt.Errorf("ошибка отправки в Kafka (topic %s): %w", msg.Topic, err)
	}

	log := logger.FromContext(ctx)

	log.Debug().
		Str("topic", msg.Topic).
		Str("key", string(msg.Key)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}
	logger.Info().Msg("Kafka Producer закрыт")
	return nil
}
