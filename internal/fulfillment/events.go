package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/packfinderz-fulfillment/pkg/enums"
	"github.com/angelmondragon/packfinderz-fulfillment/pkg/outbox"
)

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID, actor Actor, data any) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       1,
		Actor:         buildActor(actor),
		Data:          data,
	})
}

// buildActor returns nil for system callers such as the reconcile job.
func buildActor(actor Actor) *outbox.ActorRef {
	if actor.UserID == uuid.Nil {
		return nil
	}
	ref := &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role.String(),
	}
	if actor.BusinessID != uuid.Nil {
		business := actor.BusinessID
		ref.BusinessID = &business
	}
	return ref
}
