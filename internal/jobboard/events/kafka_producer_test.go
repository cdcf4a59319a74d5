package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

// blockingWriter holds every write until release is closed.
type blockingWriter struct {
	release chan struct{}
	mu      sync.Mutex
	written int
}

func (w *blockingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	<-w.release
	w.mu.Lock()
	w.written += len(msgs)
	w.mu.Unlock()
	return nil
}

func (w *blockingWriter) Close() error { return nil }

func testNotification() *models.StatusNotification {
	return &models.StatusNotification{
		ApplicationID: uuid.New(),
		Status:        models.StatusShortlisted,
		JobTitle:      "Go Engineer",
		EmployerName:  "Acme HR",
		EmployeeEmail: "erin@example.com",
		EmployeeName:  "Erin",
		OccurredAt:    time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewProducer(t *testing.T) {
	logger := zaptest.NewLogger(t)
	producer := NewProducer([]string{"localhost:9092"}, logger, "application-status")
	defer close(producer.closeChan)

	assert.NotNil(t, producer.writer)
	assert.Equal(t, defaultQueueSize, cap(producer.events))
	assert.NotNil(t, producer.closeChan)
	assert.Equal(t, "kafka_producer", producer.logger.Check(zap.InfoLevel, "").LoggerName)
}

func TestProducer_Notify(t *testing.T) {
	t.Run("successful enqueue", func(t *testing.T) {
		writer := &blockingWriter{release: make(chan struct{})}
		producer := newProducer(writer, zaptest.NewLogger(t), 10)

		err := producer.Notify(context.Background(), testNotification())
		assert.NoError(t, err)

		close(writer.release)
		producer.Close()
		assert.Equal(t, 1, writer.written)
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		writer := &blockingWriter{release: make(chan struct{})}
		producer := newProducer(writer, zap.New(core), 1)
		n := testNotification()

		// The loop takes the first event and blocks in the writer; the
		// second fills the queue and the third overflows it.
		require.NoError(t, producer.Notify(context.Background(), n))
		require.Eventually(t, func() bool { return len(producer.events) == 0 }, time.Second, 5*time.Millisecond)
		require.NoError(t, producer.Notify(context.Background(), n))
		err := producer.Notify(context.Background(), n)

		assert.ErrorIs(t, err, e.ErrQueueFull)
		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("application_id", n.ApplicationID.String())).Len())

		close(writer.release)
		producer.Close()
		assert.Equal(t, 2, writer.written, "queued events are flushed on close")
	})

	t.Run("closed producer refuses", func(t *testing.T) {
		writer := &blockingWriter{release: make(chan struct{})}
		close(writer.release)
		producer := newProducer(writer, zaptest.NewLogger(t), 1)
		producer.Close()

		assert.Error(t, producer.Notify(context.Background(), testNotification()))
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	logger := zaptest.NewLogger(t)
	n := testNotification()

	producer := &Producer{
		writer: mockWriter,
		logger: logger,
	}

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		event := Event{Type: ApplicationStatusChanged, Notification: n}
		producer.sendEvent(context.Background(), event)

		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Key:   []byte(n.ApplicationID.String()),
				Value: mustMarshal(event),
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), Event{Type: ApplicationStatusChanged, Notification: n})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("application_id", n.ApplicationID.String())).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), Event{Type: ApplicationStatusChanged, Notification: n})

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_Close(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), 1)
	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	select {
	case <-producer.done:
	default:
		t.Error("event loop still running")
	}

	mockWriter.AssertCalled(t, "Close")
}

func TestEnsureTopic_NoBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), nil, TopicConfig{Topic: "x"}, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestEnsureTopic_GivesUpWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := EnsureTopic(ctx, []string{"127.0.0.1:1"}, TopicConfig{Topic: "x"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func mustMarshal(event Event) []byte {
	data, _ := json.Marshal(event)
	return data
}
