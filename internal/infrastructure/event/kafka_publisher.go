package event

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/freely/backend/internal/domain/shared"
	"github.com/freely/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultBufferSize   = 1024
	defaultBatchSize    = 100
	defaultFlushTimeout = 10 * time.Second
)

// Envelope is the JSON value written to Kafka for every domain event
type Envelope struct {
	EventID        uuid.UUID       `json:"event_id"`
	EventType      string          `json:"event_type"`
	AggregateType  string          `json:"aggregate_type"`
	AggregateID    uuid.UUID       `json:"aggregate_id"`
	OrganizationID *uuid.UUID      `json:"organization_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a domain event
func NewEnvelope(event shared.DomainEvent) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s event: %w", event.EventType(), err)
	}
	env := Envelope{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
	}
	if org := event.OrganizationID(); org != uuid.Nil {
		env.OrganizationID = &org
	}
	return env, nil
}

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher exports domain events to a Kafka topic. It subscribes to the
// event bus as a wildcard handler; Handle only enqueues, and Run writes the
// queue in batches so request latency never depends on the broker.
// A full queue drops events with a warning.
type KafkaPublisher struct {
	writer    messageWriter
	queue     chan kafka.Message
	batchSize int
	logger    *zap.Logger
	closeOnce sync.Once
}

// KafkaOption configures a KafkaPublisher
type KafkaOption func(*KafkaPublisher)

// WithBufferSize sets the queue capacity
func WithBufferSize(n int) KafkaOption {
	return func(p *KafkaPublisher) {
		if n > 0 {
			p.queue = make(chan kafka.Message, n)
		}
	}
}

// WithBatchSize sets how many messages are written per call
func WithBatchSize(n int) KafkaOption {
	return func(p *KafkaPublisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// withWriter replaces the Kafka writer; used by tests
func withWriter(w messageWriter) KafkaOption {
	return func(p *KafkaPublisher) {
		p.writer = w
	}
}

// NewKafkaPublisher creates a publisher for cfg.Topic
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		queue:     make(chan kafka.Message, defaultBufferSize),
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			MaxAttempts:            5,
			AllowAutoTopicCreation: true,
			Compression:            kafka.Snappy,
			Transport: &kafka.Transport{
				Dial: (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			},
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
				logger.Sugar().Errorf("kafka writer: "+msg, args...)
			}),
		}
	}
	return p
}

// EventTypes subscribes the publisher to every event
func (p *KafkaPublisher) EventTypes() []string {
	return nil
}

// Handle enqueues the event. Messages are keyed by aggregate ID so events of
// one aggregate stay ordered within a partition.
func (p *KafkaPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	env, err := NewEnvelope(event)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.AggregateID.String()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "aggregate_type", Value: []byte(env.AggregateType)},
		},
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		p.logger.Warn("Kafka queue full, dropping event",
			zap.String("event_type", env.EventType),
			zap.String("event_id", env.EventID.String()))
		return nil
	}
}

// Pending returns the number of queued messages
func (p *KafkaPublisher) Pending() int {
	return len(p.queue)
}

// Run writes queued messages until ctx is done, then flushes what is left
// and closes the writer.
func (p *KafkaPublisher) Run(ctx context.Context) error {
	p.logger.Info("Kafka event publisher started")
	batch := make([]kafka.Message, 0, p.batchSize)

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return p.close()
		case msg := <-p.queue:
			batch = append(batch[:0], msg)
			batch = p.drain(batch)
			p.write(ctx, batch)
		}
	}
}

// drain appends queued messages without blocking, up to the batch size
func (p *KafkaPublisher) drain(batch []kafka.Message) []kafka.Message {
	for len(batch) < p.batchSize {
		select {
		case msg := <-p.queue:
			batch = append(batch, msg)
		default:
			return batch
		}
	}
	return batch
}

func (p *KafkaPublisher) write(ctx context.Context, batch []kafka.Message) {
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.logger.Error("Failed to write events to Kafka",
			zap.Int("count", len(batch)),
			zap.Error(err))
	}
}

// flush writes whatever is still queued with a bounded timeout
func (p *KafkaPublisher) flush() {
	pending := p.Pending()
	if pending == 0 {
		return
	}
	p.logger.Info("Flushing queued events", zap.Int("pending", pending))

	ctx, cancel := context.WithTimeout(context.Background(), defaultFlushTimeout)
	defer cancel()
	for p.Pending() > 0 {
		batch := p.drain(make([]kafka.Message, 0, p.batchSize))
		p.write(ctx, batch)
	}
}

func (p *KafkaPublisher) close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.writer.Close()
		p.logger.Info("Kafka event publisher stopped")
	})
	return err
}

var _ shared.EventHandler = (*KafkaPublisher)(nil)
