package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"social-go/internal/models"
)

// SocialEvent is published after a social action commits. Consumers turn it
// into a notification for RecipientID.
type SocialEvent struct {
	Type        models.NotificationType `json:"type"`
	ActorID     uint                    `json:"actorId"`
	RecipientID uint                    `json:"recipientId"`
	EntityID    uint                    `json:"entityId"`
	At          time.Time               `json:"at"`
}

// EventPublisher delivers social events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event SocialEvent) error
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event. Used when no
// Kafka brokers are configured.
func NewNoopPublisher() EventPublisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, SocialEvent) error {
	return nil
}

// eventPublishTimeout caps how long a request waits for the bus after its
// write has committed.
var eventPublishTimeout = 2 * time.Second

// publish is best-effort: a failed publish is logged and never fails the
// operation that triggered it.
func publish(ctx context.Context, p EventPublisher, eventType models.NotificationType, actorID, recipientID, entityID uint) {
	event := SocialEvent{
		Type:        eventType,
		ActorID:     actorID,
		RecipientID: recipientID,
		EntityID:    entityID,
		At:          time.Now().UTC(),
	}
	// 请求取消不影响发布，但等待时间有上限
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()
	if err := p.Publish(pubCtx, event); err != nil {
		zap.L().Warn("publish social event failed",
			zap.String("type", string(eventType)),
			zap.Uint("actorId", actorID),
			zap.Uint("recipientId", recipientID),
			zap.Error(err),
		)
	}
}
