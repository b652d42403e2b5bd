package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/pipeline-api/internal/domain"
	"github.com/straye-as/pipeline-api/internal/events"
	"github.com/straye-as/pipeline-api/internal/metrics"
	"go.uber.org/zap"
)

// eventNotifier publishes pipeline events after a committed mutation.
// Publish failures are logged and counted, never returned.
type eventNotifier struct {
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func (n eventNotifier) notify(ctx context.Context, event domain.PipelineEvent) {
	if n.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.ActorID == "" {
		event.ActorID, _ = actorFromContext(ctx)
	}

	// The request may be finishing; the event outlives it
	if err := n.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		n.logger.Warn("failed to publish pipeline event",
			zap.String("event_type", string(event.Type)),
			zap.String("organization_id", event.OrganizationID.String()),
			zap.Error(err))
		n.metrics.RecordPublishFailure(string(event.Type))
	}
}

func dealEvent(eventType domain.PipelineEventType, deal *domain.Deal, from domain.DealStage) domain.PipelineEvent {
	id := deal.ID
	return domain.PipelineEvent{
		Type:           eventType,
		OrganizationID: deal.OrganizationID,
		DealID:         &id,
		QuoteID:        copyUUID(deal.QuoteID),
		FromStage:      from,
		ToStage:        deal.Stage,
		Value:          deal.Value,
	}
}

func copyUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
