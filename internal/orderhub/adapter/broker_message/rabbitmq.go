// Package broker_message bridges committed transition events onto RabbitMQ
// for out-of-process subscribers (notification displays, integrations).
package broker_message

import (
	"context"
	"encoding/json"
	"fmt"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/rabbitmq"
)

type EventBridge struct {
	rmq *rabbitmq.RabbitMQ
}

func NewEventBridge(rmq *rabbitmq.RabbitMQ) *EventBridge {
	return &EventBridge{rmq: rmq}
}

// RoutingKey shapes the topic key so subscribers can bind by restaurant,
// station, target status, or any wildcard combination.
func RoutingKey(ev models.TransitionEvent) string {
	station := ev.Station
	if station == "" {
		station = models.DefaultStation
	}
	return fmt.Sprintf("order.%s.%s.%s", ev.RestaurantID, station, ev.ToStatus)
}

// PublishEvent forwards one committed event. Delivery is best-effort; the
// caller logs and moves on when it fails.
func (b *EventBridge) PublishEvent(ctx context.Context, ev models.TransitionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rmq.Publish(ctx, RoutingKey(ev), body)
}
