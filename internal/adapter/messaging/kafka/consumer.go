package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachpay/config"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded message. Returning an error leaves the
// offset uncommitted so the message is redelivered.
type Handler func(ctx context.Context, key []byte, value []byte) error

// messageReader is the slice of *kafka.Reader the consumer loop needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a consumer-group reader over one topic and feeds each
// message through a Handler.
type Consumer struct {
	reader     messageReader
	handle     Handler
	minBackoff time.Duration
	maxBackoff time.Duration
	log        zerolog.Logger
}

// NewConsumer creates a consumer-group reader for the topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handle Handler, log zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   topic,
	})
	return &Consumer{
		reader:     reader,
		handle:     handle,
		minBackoff: time.Second,
		maxBackoff: time.Minute,
		log:        log.With().Str("topic", topic).Logger(),
	}
}

// Run fetches and handles messages until the context is cancelled. Offsets
// are committed only after the handler succeeds, so delivery is
// at-least-once and every handler must be idempotent. A failing handler
// blocks its partition: the same message is retried with backoff, never
// skipped, because committing a later offset would silently mark it
// consumed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			return nil // context cancelled mid-retry
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

// handleWithRetry runs the handler until it succeeds or the context is
// cancelled, doubling the backoff up to maxBackoff.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	backoff := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handle(ctx, msg.Key, msg.Value)
		if err == nil {
			return nil
		}

		c.log.Error().
			Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("message handling failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
