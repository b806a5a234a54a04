// Package memory backs the repositories with in-process maps. It is the
// storage driver for dev mode and tests; the compare-and-swap semantics match
// the postgres adapter exactly.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
)

type OrderRepo struct {
	mu       sync.Mutex
	orders   map[string]models.Order            // key restaurantID/orderNumber
	events   map[string][]models.TransitionEvent // key orderID
	counters map[string]int                      // key restaurantID/date
}

func NewOrderRepo() *OrderRepo {
	return &OrderRepo{
		orders:   make(map[string]models.Order),
		events:   make(map[string][]models.TransitionEvent),
		counters: make(map[string]int),
	}
}

func orderKey(restaurantID, orderNumber string) string {
	return restaurantID + "/" + orderNumber
}

func (r *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	date := time.Now().UTC().Format("20060102")
	counterKey := order.RestaurantID + "/" + date
	r.counters[counterKey]++

	order.OrderID = uuid.New().String()
	order.OrderNumber = fmt.Sprintf("ORD_%s_%03d", date, r.counters[counterKey])
	order.CreatedAt = time.Now().UTC()

	r.orders[orderKey(order.RestaurantID, order.OrderNumber)] = order.Clone()
	return order, nil
}

func (r *OrderRepo) GetByNumber(ctx context.Context, restaurantID, orderNumber string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderKey(restaurantID, orderNumber)]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepo) ListActive(ctx context.Context, restaurantID, station string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Order
	for _, order := range r.orders {
		if order.RestaurantID != restaurantID || order.ClosedAt != nil {
			continue
		}
		if station != "" && !hasStation(order, station) {
			continue
		}
		out = append(out, order.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func hasStation(order models.Order, station string) bool {
	for _, it := range order.Items {
		if it.Station == station {
			return true
		}
	}
	return false
}

func (r *OrderRepo) CommitTransition(ctx context.Context, order models.Order, ev models.TransitionEvent, expectedSeq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := orderKey(order.RestaurantID, order.OrderNumber)
	current, ok := r.orders[key]
	if !ok {
		return core.ErrOrderNotFound
	}
	if current.LastSeq != expectedSeq {
		return core.ErrConflict
	}

	r.orders[key] = order.Clone()
	r.events[order.OrderID] = append(r.events[order.OrderID], ev)
	return nil
}

func (r *OrderRepo) Archive(ctx context.Context, restaurantID, orderNumber string, expectedSeq uint64, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := orderKey(restaurantID, orderNumber)
	current, ok := r.orders[key]
	if !ok {
		return core.ErrOrderNotFound
	}
	if current.LastSeq != expectedSeq {
		return core.ErrConflict
	}
	if current.ClosedAt != nil {
		return core.ErrOrderClosed
	}

	current.ClosedAt = &closedAt
	r.orders[key] = current
	return nil
}

func (r *OrderRepo) ListEvents(ctx context.Context, orderID string) ([]models.TransitionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evs := r.events[orderID]
	out := make([]models.TransitionEvent, len(evs))
	copy(out, evs)
	return out, nil
}
