package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   int
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed++
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &mockWriter{}
	pub := events.NewKafkaPublisherWithWriter(writer, zap.NewNop())

	orgID := uuid.New()
	dealID := uuid.New()
	err := pub.Publish(context.Background(), domain.PipelineEvent{
		Type:           domain.EventDealStageMoved,
		OrganizationID: orgID,
		DealID:         &dealID,
		FromStage:      domain.DealStageLead,
		ToStage:        domain.DealStageProposal,
	})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, orgID.String(), string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, string(domain.EventDealStageMoved), string(msg.Headers[0].Value))
	assert.False(t, msg.Time.IsZero())

	var decoded domain.PipelineEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, domain.DealStageProposal, decoded.ToStage)
	assert.Equal(t, dealID, *decoded.DealID)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	writer := &mockWriter{err: errors.New("broker down")}
	pub := events.NewKafkaPublisherWithWriter(writer, zap.NewNop())

	err := pub.Publish(context.Background(), domain.PipelineEvent{Type: domain.EventDealCreated, OrganizationID: uuid.New()})
	assert.ErrorContains(t, err, "broker down")
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &mockWriter{}
	pub := events.NewKafkaPublisherWithWriter(writer, zap.NewNop())

	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())
	assert.Equal(t, 1, writer.closed)

	err := pub.Publish(context.Background(), domain.PipelineEvent{Type: domain.EventDealWon})
	assert.ErrorIs(t, err, events.ErrPublisherClosed)
}

func TestNewKafkaPublisher_RequiresBrokersAndTopic(t *testing.T) {
	_, err := events.NewKafkaPublisher(&config.KafkaConfig{Topic: "t"}, zap.NewNop())
	assert.Error(t, err)

	_, err = events.NewKafkaPublisher(&config.KafkaConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())
	assert.Error(t, err)
}

func TestNew_DisabledUsesLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	pub, err := events.New(&config.KafkaConfig{Enabled: false}, zap.New(core))
	require.NoError(t, err)
	_, ok := pub.(*events.LogPublisher)
	require.True(t, ok)

	dealID := uuid.New()
	require.NoError(t, pub.Publish(context.Background(), domain.PipelineEvent{
		Type:           domain.EventDealLost,
		OrganizationID: uuid.New(),
		DealID:         &dealID,
		ToStage:        domain.DealStageClosedLost,
		OccurredAt:     time.Now(),
	}))

	entries := logs.FilterMessage("pipeline event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(domain.EventDealLost), entries[0].ContextMap()["event_type"])
	assert.Equal(t, dealID.String(), entries[0].ContextMap()["deal_id"])
	assert.NoError(t, pub.Close())
}
