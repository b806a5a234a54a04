// Package fulfillment is the pure order/kitchen transition logic. It decides
// whether a requested item transition is legal for the acting role, applies
// it to a detached copy of the order, re-derives the order-level status and
// produces the single event the commit must carry. It holds no state and is
// safe to call concurrently; serialization happens in the aggregate store.
package fulfillment

import (
	"time"

	"github.com/google/uuid"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
)

// Transition validates and applies one item transition. On success it
// returns the updated order and the event to commit alongside it. A request
// that matches the item's current status is an accepted no-op: the order is
// returned unchanged and the event is nil, so client retries never double
// apply.
func Transition(order models.Order, itemID string, target models.ItemStatus, actor models.Principal) (models.Order, *models.TransitionEvent, error) {
	if order.ClosedAt != nil {
		return order, nil, core.ErrOrderClosed
	}
	if !target.Valid() {
		return order, nil, core.ErrIllegalTransition
	}
	if actor.RestaurantID != order.RestaurantID {
		return order, nil, core.ErrForbidden
	}

	item := order.Item(itemID)
	if item == nil {
		return order, nil, core.ErrItemNotFound
	}

	if item.Status == target {
		return order, nil, nil
	}
	if !legal(item.Status, target) {
		return order, nil, core.ErrIllegalTransition
	}
	if !allowed(actor.Role, item.Status, target) {
		return order, nil, core.ErrForbidden
	}

	updated := order.Clone()
	it := updated.Item(itemID)
	from := it.Status
	it.Status = target
	updated.Status = Derive(updated.Items)
	updated.LastSeq = order.LastSeq + 1

	ev := &models.TransitionEvent{
		EventID:      uuid.New().String(),
		OrderID:      updated.OrderID,
		OrderNumber:  updated.OrderNumber,
		RestaurantID: updated.RestaurantID,
		TableID:      updated.TableID,
		Station:      it.Station,
		ItemID:       it.ItemID,
		FromStatus:   from,
		ToStatus:     target,
		OrderStatus:  updated.Status,
		ActorID:      actor.ActorID,
		ActorRole:    actor.Role,
		OccurredAt:   time.Now().UTC(),
		SequenceNo:   updated.LastSeq,
	}
	return updated, ev, nil
}

// legal reports whether from -> to is on the allowed path: one forward step
// at a time, or a jump to cancelled from any non-terminal state.
func legal(from, to models.ItemStatus) bool {
	if to == models.ItemStatusCancelled {
		return !from.Terminal()
	}
	return !from.Terminal() && to.Rank() == from.Rank()+1
}

// allowed is the role matrix: kitchen drives preparation, waiters and
// cashiers serve, cancellation needs managerial scope. Managers and admins
// may also drive any legal step directly.
func allowed(role models.Role, from, to models.ItemStatus) bool {
	if role.Managerial() {
		return true
	}
	if to == models.ItemStatusCancelled {
		return false
	}
	switch role {
	case models.RoleKitchen:
		return to == models.ItemStatusInProgress || to == models.ItemStatusReady
	case models.RoleWaiter, models.RoleCashier:
		return from == models.ItemStatusReady && to == models.ItemStatusServed
	}
	return false
}

// Derive computes the order-level status from its items. The order reports
// the progress of its slowest non-cancelled item: all items still new means
// placed, any progress lifts it to confirmed, and from there the minimum
// rank maps to preparing, ready and served. An order whose items are all
// cancelled is cancelled.
func Derive(items []models.OrderItem) models.OrderStatus {
	minRank := -1
	maxRank := -1
	for _, it := range items {
		if it.Status == models.ItemStatusCancelled {
			continue
		}
		r := it.Status.Rank()
		if minRank == -1 || r < minRank {
			minRank = r
		}
		if r > maxRank {
			maxRank = r
		}
	}

	switch minRank {
	case -1:
		return models.OrderStatusCancelled
	case 0:
		if maxRank > 0 {
			return models.OrderStatusConfirmed
		}
		return models.OrderStatusPlaced
	case 1:
		return models.OrderStatusPreparing
	case 2:
		return models.OrderStatusReady
	default:
		return models.OrderStatusServed
	}
}
