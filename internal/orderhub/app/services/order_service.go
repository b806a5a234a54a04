package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/orderhub/domain/fulfillment"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

// OrderService drives order intake and the per-item fulfillment lifecycle.
// Every mutation commits through the repository's conditional write; the
// broadcast hub and broker bridge only ever see committed events.
type OrderService struct {
	orders core.IOrderRepo
	hub    core.IEventSink
	bridge core.IEventBridge // may be nil
	mylog  logger.Logger

	// Per-order locks held across commit and publish, so subscribers see a
	// given order's events in sequence order.
	locks sync.Map
}

func (s *OrderService) orderLock(restaurantID, orderNumber string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(restaurantID+"/"+orderNumber, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func NewOrderService(orders core.IOrderRepo, hub core.IEventSink, bridge core.IEventBridge, mylog logger.Logger) *OrderService {
	return &OrderService{orders: orders, hub: hub, bridge: bridge, mylog: mylog}
}

// PlaceOrder validates and persists a new customer order. All items start in
// status "new" and the order in "placed".
func (s *OrderService) PlaceOrder(ctx context.Context, actor models.Principal, req dto.CreateOrderRequest) (models.Order, error) {
	mylog := s.mylog.Action("place_order")

	if actor.Role != models.RoleCustomer {
		return models.Order{}, core.ErrForbidden
	}
	if err := validateItems(req.Items); err != nil {
		return models.Order{}, err
	}

	now := time.Now().UTC()
	order := models.Order{
		OrderID:      uuid.New().String(),
		RestaurantID: actor.RestaurantID,
		TableID:      actor.TableID,
		Status:       models.OrderStatusPlaced,
		CreatedAt:    now,
	}
	var subtotal float64
	for _, it := range req.Items {
		station := it.Station
		if station == "" {
			station = models.DefaultStation
		}
		order.Items = append(order.Items, models.OrderItem{
			ItemID:   uuid.New().String(),
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
			Station:  station,
			Status:   models.ItemStatusNew,
		})
		subtotal += it.Price * float64(it.Quantity)
	}
	order.Subtotal = round2(subtotal)
	order.Total = order.Subtotal

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		mylog.Error("failed to create order", err)
		return models.Order{}, err
	}

	// Announce the new order to kitchen and waiter screens. Not part of the
	// transition log, so it carries no sequence number.
	s.announce(ctx, models.TransitionEvent{
		EventID:      uuid.New().String(),
		OrderID:      created.OrderID,
		OrderNumber:  created.OrderNumber,
		RestaurantID: created.RestaurantID,
		TableID:      created.TableID,
		Station:      models.DefaultStation,
		ToStatus:     models.ItemStatusNew,
		OrderStatus:  created.Status,
		ActorID:      actor.ActorID,
		ActorRole:    actor.Role,
		OccurredAt:   created.CreatedAt,
	})

	mylog.Info("order placed",
		"order_number", created.OrderNumber,
		"table_id", created.TableID,
		"items", len(created.Items),
		"total", created.Total)
	return created, nil
}

// Transition moves one item to its target status. Conflicting writers are
// retried internally: the order is re-read, the transition re-evaluated
// against fresh state, and re-applies that are already satisfied succeed as
// no-ops.
func (s *OrderService) Transition(ctx context.Context, actor models.Principal, orderNumber, itemID string, target models.ItemStatus) (dto.TransitionResponse, error) {
	mylog := s.mylog.Action("transition_item")

	var lastErr error
	for attempt := 0; attempt < core.TransitionRetries; attempt++ {
		order, err := s.orders.GetByNumber(ctx, actor.RestaurantID, orderNumber)
		if err != nil {
			return dto.TransitionResponse{}, err
		}

		updated, ev, err := fulfillment.Transition(order, itemID, target, actor)
		if err != nil {
			return dto.TransitionResponse{}, err
		}
		if ev == nil {
			// Already in the target state: idempotent success, nothing to
			// commit or publish.
			item := order.Item(itemID)
			return dto.TransitionResponse{Order: order, Item: *item, NoOp: true}, nil
		}

		lock := s.orderLock(actor.RestaurantID, orderNumber)
		lock.Lock()
		if err := s.orders.CommitTransition(ctx, updated, *ev, order.LastSeq); err != nil {
			lock.Unlock()
			if errors.Is(err, core.ErrConflict) {
				lastErr = err
				continue
			}
			mylog.Error("failed to commit transition", err, "order_number", orderNumber)
			return dto.TransitionResponse{}, err
		}
		s.announce(ctx, *ev)
		lock.Unlock()

		mylog.Info("item transitioned",
			"order_number", orderNumber,
			"item_id", itemID,
			"from", string(ev.FromStatus),
			"to", string(ev.ToStatus),
			"order_status", string(updated.Status),
			"seq", ev.SequenceNo)
		item := updated.Item(itemID)
		return dto.TransitionResponse{Order: updated, Item: *item}, nil
	}

	mylog.Warn("transition retries exhausted", "order_number", orderNumber, "item_id", itemID)
	return dto.TransitionResponse{}, lastErr
}

// CloseOrder archives a fully served or cancelled order at billing time.
// Closing an already-closed order is a no-op.
func (s *OrderService) CloseOrder(ctx context.Context, actor models.Principal, orderNumber string) (models.Order, error) {
	mylog := s.mylog.Action("close_order")

	switch actor.Role {
	case models.RoleWaiter, models.RoleCashier:
	default:
		if !actor.Role.Managerial() {
			return models.Order{}, core.ErrForbidden
		}
	}

	var lastErr error
	for attempt := 0; attempt < core.TransitionRetries; attempt++ {
		order, err := s.orders.GetByNumber(ctx, actor.RestaurantID, orderNumber)
		if err != nil {
			return models.Order{}, err
		}
		if order.ClosedAt != nil {
			return order, nil
		}
		if order.Status != models.OrderStatusServed && order.Status != models.OrderStatusCancelled {
			return models.Order{}, core.ErrIllegalTransition
		}

		closedAt := time.Now().UTC()
		err = s.orders.Archive(ctx, actor.RestaurantID, orderNumber, order.LastSeq, closedAt)
		switch {
		case err == nil:
			order.ClosedAt = &closedAt
			mylog.Info("order closed", "order_number", orderNumber, "status", string(order.Status))
			return order, nil
		case errors.Is(err, core.ErrOrderClosed):
			order.ClosedAt = &closedAt
			return order, nil
		case errors.Is(err, core.ErrConflict):
			lastErr = err
			continue
		default:
			return models.Order{}, err
		}
	}
	return models.Order{}, lastErr
}

// GetOrder returns the order with its full event log, scoped to the caller:
// customers see their own table's orders, staff see their restaurant's.
func (s *OrderService) GetOrder(ctx context.Context, actor models.Principal, orderNumber string) (dto.OrderDetailResponse, error) {
	order, err := s.orders.GetByNumber(ctx, actor.RestaurantID, orderNumber)
	if err != nil {
		return dto.OrderDetailResponse{}, err
	}
	if actor.Role == models.RoleCustomer && order.TableID != actor.TableID {
		return dto.OrderDetailResponse{}, core.ErrForbidden
	}

	events, err := s.orders.ListEvents(ctx, order.OrderID)
	if err != nil {
		return dto.OrderDetailResponse{}, err
	}
	return dto.OrderDetailResponse{Order: order, Events: events}, nil
}

// KitchenOrders lists active orders for staff displays, optionally filtered
// to one station's items.
func (s *OrderService) KitchenOrders(ctx context.Context, actor models.Principal, station string) ([]models.Order, error) {
	if actor.Role == models.RoleCustomer {
		return nil, core.ErrForbidden
	}
	return s.orders.ListActive(ctx, actor.RestaurantID, station)
}

// announce fans a committed event out to in-process subscribers and, best
// effort, to the broker.
func (s *OrderService) announce(ctx context.Context, ev models.TransitionEvent) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
	if s.bridge != nil {
		if err := s.bridge.PublishEvent(ctx, ev); err != nil {
			s.mylog.Action("publish_event").Warn("broker publish failed",
				"order_number", ev.OrderNumber, "error", err.Error())
		}
	}
}

func validateItems(items []dto.OrderItemRequest) error {
	if len(items) < core.MinItems || len(items) > core.MaxItems {
		return core.ErrValidation
	}
	for _, it := range items {
		if len(it.Name) < core.MinItemNameLen || len(it.Name) > core.MaxItemNameLen {
			return core.ErrValidation
		}
		if it.Quantity < core.MinItemQuantity || it.Quantity > core.MaxItemQuantity {
			return core.ErrValidation
		}
		if it.Price < core.MinItemPrice || it.Price > core.MaxItemPrice {
			return core.ErrValidation
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
