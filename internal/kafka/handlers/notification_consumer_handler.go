package kafkahandlers

import (
	"context"
	"encoding/json"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"social-go/internal/services"
)

// NotificationConsumerLogic turns social events from Kafka into stored
// notifications.
type NotificationConsumerLogic struct {
	notifications services.NotificationService
	log           *zap.Logger
}

// NewNotificationConsumerLogic creates a new instance of NotificationConsumerLogic.
func NewNotificationConsumerLogic(ns services.NotificationService) *NotificationConsumerLogic {
	if ns == nil {
		zap.L().Panic("NotificationService cannot be nil")
	}
	return &NotificationConsumerLogic{notifications: ns, log: zap.L().Named("kafka.notifications")}
}

// HandleEvent is the MessageHandler passed to the Kafka consumer.
func (h *NotificationConsumerLogic) HandleEvent(ctx context.Context, msg *kafka.Message) error {
	var event services.SocialEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 无法解析的消息直接跳过，提交偏移量
		h.log.Warn("skipping malformed social event",
			zap.ByteString("value", msg.Value),
			zap.Error(err),
		)
		return nil
	}
	if event.Type == "" || event.RecipientID == 0 {
		h.log.Warn("skipping incomplete social event", zap.ByteString("value", msg.Value))
		return nil
	}

	if err := h.notifications.Record(ctx, event); err != nil {
		return err
	}
	h.log.Debug("notification stored",
		zap.String("type", string(event.Type)),
		zap.Uint("recipientId", event.RecipientID),
		zap.Uint("actorId", event.ActorID),
	)
	return nil
}
