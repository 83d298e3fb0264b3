package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessageWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *fakeMessageWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishesRunEventKeyedByRunID(t *testing.T) {
	writer := &fakeMessageWriter{}
	publisher := &KafkaPublisher{writer: writer, logger: slog.Default()}

	event := RunEvent{
		RunID:       "run-1",
		Status:      "PASS",
		FailedGates: []string{},
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt:  time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
	}

	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("run-1"), writer.messages[0].Key)

	var decoded RunEvent
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestKafkaPublisher_WrapsWriterErrors(t *testing.T) {
	brokerErr := errors.New("broker unreachable")
	publisher := &KafkaPublisher{writer: &fakeMessageWriter{err: brokerErr}, logger: slog.Default()}

	err := publisher.Publish(context.Background(), RunEvent{RunID: "run-1"})

	require.ErrorIs(t, err, brokerErr)
}

func TestKafkaPublisher_CloseReleasesWriter(t *testing.T) {
	writer := &fakeMessageWriter{}
	publisher := &KafkaPublisher{writer: writer, logger: slog.Default()}

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
}

func TestNewPublisherFromEnv_NopWithoutBrokers(t *testing.T) {
	t.Setenv(BrokersEnvVar, "")

	publisher := NewPublisherFromEnv(slog.Default())

	_, ok := publisher.(NopPublisher)
	assert.True(t, ok)
}

func TestNewPublisherFromEnv_KafkaWhenBrokersSet(t *testing.T) {
	t.Setenv(BrokersEnvVar, "localhost:9092,localhost:9093")
	t.Setenv(RunEventsTopicEnvVar, "runs")

	publisher := NewPublisherFromEnv(slog.Default())

	_, ok := publisher.(*KafkaPublisher)
	assert.True(t, ok)
	require.NoError(t, publisher.Close())
}
