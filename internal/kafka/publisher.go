package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"social-go/internal/services"
)

// eventPublisher writes social events to one topic, keyed by recipient so
// that a user's notifications stay ordered within a partition.
type eventPublisher struct {
	producer MessageProducer
	topic    string
}

// NewEventPublisher adapts a producer to services.EventPublisher.
func NewEventPublisher(producer MessageProducer, topic string) services.EventPublisher {
	return &eventPublisher{producer: producer, topic: topic}
}

func (p *eventPublisher) Publish(ctx context.Context, event services.SocialEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化社交事件失败: %w", err)
	}
	key := []byte(strconv.FormatUint(uint64(event.RecipientID), 10))
	return p.producer.SendMessage(ctx, p.topic, key, payload)
}
