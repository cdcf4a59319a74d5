package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// maxDeliveryElapsed bounds how long one event is retried before it is dropped.
const maxDeliveryElapsed = 2 * time.Minute

type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, Event) error
	backOff func() backoff.BackOff
}

// NewConsumer consumes status change events from topic as part of groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		logger: logger.Named("kafka_consumer"),
	}
}

// Run fetches, handles and commits messages until ctx is cancelled.
// Malformed and unknown events are committed and skipped. A failing handler
// is retried with exponential backoff on the same message; once the retries
// are exhausted, or the error is ErrInvalidInput, the event is logged and
// committed. Cancellation mid-retry leaves the message uncommitted so it is
// redelivered to the group.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil || event.Notification == nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			c.commit(ctx, msg, event.Type)
			continue
		}
		if event.Type != ApplicationStatusChanged {
			c.logger.Warn("Skipping unknown event", zap.String("event_type", string(event.Type)))
			c.commit(ctx, msg, event.Type)
			continue
		}

		if err := c.deliver(ctx, event); err != nil {
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.String("application_id", event.Notification.ApplicationID.String()),
			)
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Dropping event after failed deliveries",
				zap.Int64("offset", msg.Offset),
				zap.String("application_id", event.Notification.ApplicationID.String()),
			)
		}
		c.commit(ctx, msg, event.Type)
	}
}

func (c *Consumer) deliver(ctx context.Context, event Event) error {
	operation := func() error {
		err := c.handler(ctx, event)
		if errors.Is(err, e.ErrInvalidInput) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Retrying event delivery",
			zap.Error(err),
			zap.Duration("wait", wait),
			zap.String("application_id", event.Notification.ApplicationID.String()),
		)
	}
	return backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify)
}

func (c *Consumer) newBackOff() backoff.BackOff {
	if c.backOff != nil {
		return c.backOff()
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxDeliveryElapsed
	return policy
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
