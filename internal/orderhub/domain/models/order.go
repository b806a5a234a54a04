package models

import "time"

// ItemStatus is the per-item preparation state. Items only ever move forward
// through the ranks, except for a jump to cancelled from any non-terminal
// state.
type ItemStatus string

const (
	ItemStatusNew        ItemStatus = "new"
	ItemStatusInProgress ItemStatus = "in_progress"
	ItemStatusReady      ItemStatus = "ready"
	ItemStatusServed     ItemStatus = "served"
	ItemStatusCancelled  ItemStatus = "cancelled"
)

// Rank orders the forward path: new(0) < in_progress(1) < ready(2) < served(3).
// Cancelled has no rank and returns -1.
func (s ItemStatus) Rank() int {
	switch s {
	case ItemStatusNew:
		return 0
	case ItemStatusInProgress:
		return 1
	case ItemStatusReady:
		return 2
	case ItemStatusServed:
		return 3
	}
	return -1
}

// Terminal reports whether no further transition is allowed from s.
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusServed || s == ItemStatusCancelled
}

func (s ItemStatus) Valid() bool {
	return s.Rank() >= 0 || s == ItemStatusCancelled
}

// OrderStatus is derived from item statuses, never set directly.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DefaultStation is assigned to items that do not name a kitchen station.
const DefaultStation = "main"

type OrderItem struct {
	ItemID   string     `json:"item_id"`
	Name     string     `json:"name"`
	Quantity int        `json:"quantity"`
	Price    float64    `json:"price"`
	Station  string     `json:"station"`
	Status   ItemStatus `json:"status"`
}

type Order struct {
	OrderID      string      `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	RestaurantID string      `json:"restaurant_id"`
	TableID      string      `json:"table_id"`
	Items        []OrderItem `json:"items"`
	Status       OrderStatus `json:"status"`
	Subtotal     float64     `json:"subtotal"`
	Tax          float64     `json:"tax"`
	Discount     float64     `json:"discount"`
	Total        float64     `json:"total"`
	// LastSeq is the sequence number of the latest committed transition
	// event; every write is conditioned on it.
	LastSeq   uint64     `json:"last_seq"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// Item returns a pointer to the item with the given ID, or nil.
func (o *Order) Item(itemID string) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Clone deep-copies the order so the state machine can work on a detached
// value.
func (o Order) Clone() Order {
	items := make([]OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
