package models

import "time"

// TransitionEvent is the immutable record of one accepted item transition.
// SequenceNo is strictly increasing per order and is the ordering authority
// for every subscriber.
type TransitionEvent struct {
	EventID      string      `json:"event_id"`
	OrderID      string      `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	RestaurantID string      `json:"restaurant_id"`
	TableID      string      `json:"table_id"`
	Station      string      `json:"station"`
	ItemID       string      `json:"item_id,omitempty"`
	FromStatus   ItemStatus  `json:"from_status"`
	ToStatus     ItemStatus  `json:"to_status"`
	OrderStatus  OrderStatus `json:"order_status"`
	ActorID      string      `json:"actor_id"`
	ActorRole    Role        `json:"actor_role"`
	OccurredAt   time.Time   `json:"occurred_at"`
	SequenceNo   uint64      `json:"sequence_no"`
}
