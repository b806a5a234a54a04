// Package subscriber consumes committed transition events from the broker
// and renders them as notifications. It keeps a bounded ring of recent
// notifications for its status display.
package subscriber

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
	"tableflow/internal/xpkg/rabbitmq"
)

// RecentCap bounds the notification ring.
const RecentCap = 50

type Subscriber struct {
	rmq     *rabbitmq.RabbitMQ
	pattern string
	name    string
	mylog   logger.Logger

	mu     sync.Mutex
	recent []models.TransitionEvent
}

func New(rmq *rabbitmq.RabbitMQ, pattern, name string, mylog logger.Logger) *Subscriber {
	return &Subscriber{
		rmq:     rmq,
		pattern: pattern,
		name:    name,
		mylog:   mylog,
	}
}

// Run consumes until the context is cancelled. Broker reconnects are handled
// underneath Subscribe; the delivery channel closes only on shutdown.
func (s *Subscriber) Run(ctx context.Context) error {
	msgs, err := s.rmq.Subscribe(ctx, s.pattern, s.name)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", s.pattern, err)
	}

	s.mylog.Action("consuming_started").Info("consuming transition events", "pattern", s.pattern)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.process(msg)
		}
	}
}

func (s *Subscriber) process(msg amqp.Delivery) {
	ev, err := parseEvent(msg.Body)
	if err != nil {
		s.mylog.Action("message_parsing_failed").Error("failed to parse transition event", err)
		_ = msg.Nack(false, false)
		return
	}

	s.remember(ev)
	s.display(ev)
	_ = msg.Ack(false)
}

func parseEvent(body []byte) (models.TransitionEvent, error) {
	var ev models.TransitionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return models.TransitionEvent{}, err
	}
	if ev.OrderNumber == "" {
		return models.TransitionEvent{}, fmt.Errorf("event has no order number")
	}
	return ev, nil
}

func (s *Subscriber) remember(ev models.TransitionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, ev)
	if len(s.recent) > RecentCap {
		s.recent = s.recent[len(s.recent)-RecentCap:]
	}
}

// Recent returns the retained notifications, oldest first.
func (s *Subscriber) Recent() []models.TransitionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransitionEvent, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Subscriber) display(ev models.TransitionEvent) {
	switch {
	case ev.ItemID == "":
		fmt.Printf("New order %s at table %s\n", ev.OrderNumber, ev.TableID)
	case ev.ToStatus == models.ItemStatusCancelled:
		fmt.Printf("Order %s: item cancelled by %s\n", ev.OrderNumber, ev.ActorRole)
	default:
		fmt.Printf("Order %s [%s]: %s -> %s (order now %s)\n",
			ev.OrderNumber, ev.Station, ev.FromStatus, ev.ToStatus, ev.OrderStatus)
	}

	s.mylog.Action("notification_received").Debug("status update",
		"order_number", ev.OrderNumber,
		"item_id", ev.ItemID,
		"to_status", string(ev.ToStatus),
		"sequence_no", ev.SequenceNo)
}
