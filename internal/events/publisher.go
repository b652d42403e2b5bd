// Package events publishes pipeline change notifications for downstream consumers.
// Publishing is fire-and-forget: a failed publish is logged and never fails the
// mutation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("publisher closed")

// Publisher sends pipeline events
type Publisher interface {
	Publish(ctx context.Context, event domain.PipelineEvent) error
	Close() error
}

// WriterInterface abstracts kafka.Writer for testing
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by organization,
// so one organization's events stay ordered within a partition.
type KafkaPublisher struct {
	writer WriterInterface
	logger *zap.Logger
	closed atomic.Bool
}

// NewKafkaPublisher creates an asynchronous Kafka publisher from config
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
		Async:        true,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID, DialTimeout: 10 * time.Second},
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warn("failed to deliver pipeline events",
					zap.Int("count", len(messages)),
					zap.Error(err))
			}
		},
	}

	logger.Info("Kafka event publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))

	return NewKafkaPublisherWithWriter(writer, logger), nil
}

// NewKafkaPublisherWithWriter creates a publisher on an existing writer
func NewKafkaPublisherWithWriter(writer WriterInterface, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish encodes the event and hands it to the writer
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.PipelineEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}

	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

func toMessage(event domain.PipelineEvent) (kafka.Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.OrganizationID.String()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}

// LogPublisher writes events to the log when no broker is configured
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, event domain.PipelineEvent) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("organization_id", event.OrganizationID.String()),
	}
	if event.DealID != nil {
		fields = append(fields, zap.String("deal_id", event.DealID.String()))
	}
	if event.ToStage != "" {
		fields = append(fields, zap.String("to_stage", string(event.ToStage)))
	}
	p.logger.Info("pipeline event", fields...)
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error {
	return nil
}

// New returns the Kafka publisher when enabled, otherwise the log publisher
func New(cfg *config.KafkaConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NewLogPublisher(logger), nil
	}
	return NewKafkaPublisher(cfg, logger)
}
