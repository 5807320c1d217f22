package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"coachpay/config"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Publisher implements ports.EventPublisher on a single kafka.Writer. The
// topic comes from the message, the key is the correlation id, and the hash
// balancer pins one correlation to one partition so its events stay ordered.
type Publisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewPublisher creates a Kafka event publisher.
func NewPublisher(cfg config.KafkaConfig, log zerolog.Logger) *Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		MaxAttempts:  10,
	}
	return &Publisher{writer: writer, log: log}
}

// Publish marshals the event and writes it to the topic, keyed by the
// correlation id.
func (p *Publisher) Publish(ctx context.Context, topic string, key uuid.UUID, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key.String()),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", topic, err)
	}

	p.log.Debug().
		Str("topic", topic).
		Str("key", key.String()).
		Msg("event published")
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
