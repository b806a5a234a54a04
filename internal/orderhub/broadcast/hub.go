// Package broadcast is the in-process fan-out hub. Committed transition
// events are published once and delivered to every subscriber whose channel
// key matches. Delivery is best-effort and at-most-once per subscriber: a
// slow or disconnected subscriber loses events and reconciles with a full
// snapshot on reconnect.
package broadcast

import (
	"fmt"
	"sync"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

// ChannelKeys returns every channel the event fans out to.
func ChannelKeys(ev models.TransitionEvent) []string {
	return []string{
		fmt.Sprintf("kitchen:%s:%s", ev.RestaurantID, ev.Station),
		fmt.Sprintf("waiter:%s", ev.RestaurantID),
		fmt.Sprintf("table:%s", ev.TableID),
		fmt.Sprintf("admin:%s", ev.RestaurantID),
	}
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
	mylog  logger.Logger
}

func NewHub(mylog logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[*Subscriber]struct{}),
		buffer: core.SubscriberBuffer,
		mylog:  mylog,
	}
}

// Subscriber is one viewer connection. Its queue is bounded; the ring of
// recently delivered events is connection-scoped so nothing leaks across
// restaurants or sessions.
type Subscriber struct {
	key string
	ch  chan models.TransitionEvent

	mu      sync.Mutex
	recent  []models.TransitionEvent
	dropped uint64
}

func (s *Subscriber) Key() string { return s.key }

func (s *Subscriber) Events() <-chan models.TransitionEvent { return s.ch }

// Recent returns up to RecentEventsCap events delivered to this subscriber,
// oldest first.
func (s *Subscriber) Recent() []models.TransitionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TransitionEvent, len(s.recent))
	copy(out, s.recent)
	return out
}

// Dropped reports how many events were discarded because the subscriber's
// queue was full.
func (s *Subscriber) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Subscriber) remember(ev models.TransitionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, ev)
	if len(s.recent) > core.RecentEventsCap {
		s.recent = s.recent[len(s.recent)-core.RecentEventsCap:]
	}
}

func (h *Hub) Subscribe(key string) *Subscriber {
	sub := &Subscriber{
		key: key,
		ch:  make(chan models.TransitionEvent, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*Subscriber]struct{})
	}
	h.subs[key][sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.key]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.key)
	}
	close(sub.ch)
}

// Publish fans the event out to every matching channel. Sends never block:
// a full subscriber queue drops the event for that subscriber only, keeping
// producers independent of the slowest viewer. The commit path serializes
// publishes per order, so each channel sees a given order's events in
// sequence order.
func (h *Hub) Publish(ev models.TransitionEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range ChannelKeys(ev) {
		for sub := range h.subs[key] {
			select {
			case sub.ch <- ev:
				sub.remember(ev)
			default:
				sub.mu.Lock()
				sub.dropped++
				sub.mu.Unlock()
				h.mylog.Action("subscriber_queue_full").Warn("dropping event for slow subscriber",
					"channel", key, "order_number", ev.OrderNumber, "sequence_no", ev.SequenceNo)
			}
		}
	}
}

// SubscriberCount is used by the admin snapshot and by tests.
func (h *Hub) SubscriberCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}
