package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/uniscore-io/uniscore/internal/config"
)

// Environment variables configuring the run-event publisher. An empty broker
// list disables publishing.
const (
	BrokersEnvVar        = "KAFKA_BROKERS"
	RunEventsTopicEnvVar = "KAFKA_RUN_EVENTS_TOPIC"

	defaultRunEventsTopic = "uniscore.run.events"
)

// RunEvent announces a completed mapping run to downstream consumers.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	FailedGates []string  `json:"failed_gates"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// EventPublisher delivers run events. Delivery is best-effort from the
// pipeline's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event RunEvent) error
	Close() error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(context.Context, RunEvent) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }

// messageWriter is the narrow kafka-go writer surface the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes run events to a Kafka topic, keyed by run id so
// events for the same run land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

var _ EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a publisher over the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// NewPublisherFromEnv returns a KafkaPublisher when KAFKA_BROKERS is set and
// a NopPublisher otherwise.
func NewPublisherFromEnv(logger *slog.Logger) EventPublisher {
	brokers := config.GetEnvStr(BrokersEnvVar, "")
	if brokers == "" {
		return NopPublisher{}
	}

	topic := config.GetEnvStr(RunEventsTopicEnvVar, defaultRunEventsTopic)

	return NewKafkaPublisher(strings.Split(brokers, ","), topic, logger)
}

// Publish writes one run event.
func (p *KafkaPublisher) Publish(ctx context.Context, event RunEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.RunID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}

	p.logger.Info("run event published",
		slog.String("run_id", event.RunID),
		slog.String("status", event.Status))

	return nil
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
