// Package kafka предоставляет producer поверх kafka-go для публикации
// событий магазина (заказы, платежи) из outbox.
package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/jewelry-shop/pkg/logger"
)

// TopicOrders — события жизненного цикла заказов и платежей.
const TopicOrders = "shop.orders"

// Ключи headers сообщений.
const (
	HeaderTraceID       = "trace_id"
	HeaderCorrelationID = "correlation_id"
	HeaderEventType     = "event_type"
	HeaderTimestamp     = "timestamp"
)

// Config содержит настройки подключения к Kafka.
type Config struct {
	Brokers []string
}

// Message — сообщение для отправки.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

func (m *Message) toKafkaMessage() kafka.Message {
	headers := make([]kafka.Header, 0, len(m.Headers))
	for k, v := range m.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	ts := m.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return kafka.Message{
		Topic:   m.Topic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
		Time:    ts,
	}
}

// TopicSpec описывает топик для создания при старте.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// EnsureTopics создаёт недостающие топики через контроллер кластера.
// Уже существующие топики не считаются ошибкой.
func EnsureTopics(ctx context.Context, brokers []string, topics ...TopicSpec) error {
	if len(brokers) == 0 {
		return fmt.Errorf("не указаны брокеры Kafka")
	}

	dialer := &kafka.Dialer{Timeout: 10 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("ошибка подключения к Kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("ошибка получения контроллера Kafka: %w", err)
	}

	ctrlConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("ошибка подключения к контроллеру Kafka: %w", err)
	}
	defer ctrlConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		partitions, replicas := t.Partitions, t.ReplicationFactor
		if partitions <= 0 {
			partitions = 3
		}
		if replicas <= 0 {
			replicas = 1
		}
		configs = append(configs, kafka.TopicConfig{
			Topic:             t.Name,
			NumPartitions:     partitions,
			ReplicationFactor: replicas,
		})
	}

	if err := ctrlConn.CreateTopics(configs...); err != nil {
		return fmt.Errorf("ошибка создания топиков: %w", err)
	}

	logger.Info().Int("topics", len(configs)).Msg("Топики Kafka проверены")
	return nil
}
