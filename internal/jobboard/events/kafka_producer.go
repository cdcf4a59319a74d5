// Package events carries application status notifications over Kafka.
// The Producer is the notification sink of the HTTP service; the Consumer
// feeds the out-of-process notifier.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

const (
	defaultQueueSize = 1000
	flushTimeout     = 5 * time.Second
)

type EventType string

const (
	ApplicationStatusChanged EventType = "application_status_changed"
)

type Event struct {
	Type         EventType                  `json:"type"`
	Notification *models.StatusNotification `json:"notification"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// TopicConfig describes the notification topic.
type TopicConfig struct {
	Topic             string
	NumPartitions     int
	ReplicationFactor int
}

// NewProducer creates a producer writing to topic and starts its event loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) *Producer {
	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, defaultQueueSize)
}

func newProducer(writer KafkaWriter, logger *zap.Logger, queueSize int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// EnsureTopic creates the topic if it does not exist, retrying with
// exponential backoff while the broker is unreachable.
func EnsureTopic(ctx context.Context, brokers []string, cfg TopicConfig, logger *zap.Logger) error {
	if len(brokers) == 0 {
		return fmt.Errorf("%w: no kafka brokers configured", e.ErrInvalidInput)
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 3
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}

	operation := func() error {
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			logger.Warn("Kafka broker not reachable, retrying", zap.Error(err))
			return err
		}
		defer conn.Close()

		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             cfg.Topic,
			NumPartitions:     cfg.NumPartitions,
			ReplicationFactor: cfg.ReplicationFactor,
		})
		if err != nil {
			logger.Warn("failed to create topic (may already exist)", zap.Error(err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = time.Minute
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// Notify enqueues a status change event. It never blocks: when the queue
// is full the event is dropped and ErrQueueFull returned.
func (p *Producer) Notify(_ context.Context, n *models.StatusNotification) error {
	select {
	case <-p.closeChan:
		return fmt.Errorf("kafka producer closed")
	default:
	}

	select {
	case p.events <- Event{Type: ApplicationStatusChanged, Notification: n}:
		return nil
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(ApplicationStatusChanged)),
			zap.String("application_id", n.ApplicationID.String()),
		)
		return e.ErrQueueFull
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.flush()
			return
		}
	}
}

// flush sends whatever is still queued, bounded by flushTimeout.
func (p *Producer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case event := <-p.events:
			p.sendEvent(ctx, event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	id := event.Notification.ApplicationID.String()
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("application_id", id),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(id),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("application_id", id),
		)
		return
	}
}

// Close stops the event loop after flushing queued events and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
