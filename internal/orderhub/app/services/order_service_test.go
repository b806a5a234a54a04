package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflow/internal/orderhub/adapter/memory"
	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/dto"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

type captureSink struct {
	mu  sync.Mutex
	evs []models.TransitionEvent
}

func (c *captureSink) Publish(ev models.TransitionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evs = append(c.evs, ev)
}

func (c *captureSink) events() []models.TransitionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.TransitionEvent, len(c.evs))
	copy(out, c.evs)
	return out
}

func customer() models.Principal {
	return models.Principal{
		ActorID:      "sess-1",
		Role:         models.RoleCustomer,
		RestaurantID: "rest-1",
		TableID:      "table-5",
		SessionID:    "sess-1",
	}
}

func kitchenStaff() models.Principal {
	return models.Principal{
		ActorID:      "tok-1",
		Name:         "Ainur",
		Role:         models.RoleKitchen,
		RestaurantID: "rest-1",
		ShiftID:      "shift-1",
		OnDuty:       true,
	}
}

func waiterStaff() models.Principal {
	p := kitchenStaff()
	p.ActorID = "tok-2"
	p.Role = models.RoleWaiter
	return p
}

func newOrderService(repo core.IOrderRepo, sink core.IEventSink) *OrderService {
	return NewOrderService(repo, sink, nil, logger.NewNop())
}

func placeTestOrder(t *testing.T, svc *OrderService) models.Order {
	t.Helper()
	order, err := svc.PlaceOrder(context.Background(), customer(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{
			{Name: "Margherita", Quantity: 1, Price: 12.50, Station: "pizza"},
			{Name: "Lemonade", Quantity: 2, Price: 3.00},
		},
	})
	require.NoError(t, err)
	return order
}

func TestPlaceOrderComputesTotals(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})

	order := placeTestOrder(t, svc)

	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, 18.50, order.Subtotal)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "pizza", order.Items[0].Station)
	assert.Equal(t, models.DefaultStation, order.Items[1].Station)
	for _, it := range order.Items {
		assert.Equal(t, models.ItemStatusNew, it.Status)
	}
	assert.Equal(t, uint64(0), order.LastSeq)
}

func TestPlaceOrderRejectsInvalidItems(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})

	cases := []dto.CreateOrderRequest{
		{},
		{Items: []dto.OrderItemRequest{{Name: "", Quantity: 1, Price: 1.00}}},
		{Items: []dto.OrderItemRequest{{Name: "Soup", Quantity: 0, Price: 1.00}}},
		{Items: []dto.OrderItemRequest{{Name: "Soup", Quantity: 1, Price: 0}}},
		{Items: []dto.OrderItemRequest{{Name: "Soup", Quantity: 1, Price: 1500.00}}},
	}
	for _, req := range cases {
		_, err := svc.PlaceOrder(context.Background(), customer(), req)
		assert.ErrorIs(t, err, core.ErrValidation)
	}
}

func TestPlaceOrderCustomerOnly(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})

	_, err := svc.PlaceOrder(context.Background(), kitchenStaff(), dto.CreateOrderRequest{
		Items: []dto.OrderItemRequest{{Name: "Soup", Quantity: 1, Price: 4.00}},
	})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestTransitionAdvancesItemAndOrder(t *testing.T) {
	sink := &captureSink{}
	svc := newOrderService(memory.NewOrderRepo(), sink)
	order := placeTestOrder(t, svc)
	ctx := context.Background()

	resp, err := svc.Transition(ctx, kitchenStaff(), order.OrderNumber, order.Items[0].ItemID, models.ItemStatusInProgress)
	require.NoError(t, err)
	assert.False(t, resp.NoOp)
	assert.Equal(t, models.ItemStatusInProgress, resp.Item.Status)
	assert.Equal(t, models.OrderStatusConfirmed, resp.Order.Status)
	assert.Equal(t, uint64(1), resp.Order.LastSeq)

	evs := sink.events()
	// One creation announcement plus one transition.
	require.Len(t, evs, 2)
	last := evs[1]
	assert.Equal(t, models.ItemStatusNew, last.FromStatus)
	assert.Equal(t, models.ItemStatusInProgress, last.ToStatus)
	assert.Equal(t, uint64(1), last.SequenceNo)
	assert.Equal(t, "pizza", last.Station)
}

func TestTransitionDuplicateSubmissionCommitsOnce(t *testing.T) {
	repo := memory.NewOrderRepo()
	svc := newOrderService(repo, &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()
	itemID := order.Items[0].ItemID

	first, err := svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)
	require.NoError(t, err)
	assert.False(t, first.NoOp)

	second, err := svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Equal(t, first.Order.LastSeq, second.Order.LastSeq)

	evs, err := repo.ListEvents(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestTransitionConcurrentWritersCommitExactlyOnce(t *testing.T) {
	repo := memory.NewOrderRepo()
	svc := newOrderService(repo, &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()
	itemID := order.Items[0].ItemID

	require.NoError(t, transitionErr(svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, e := svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusReady)
			errs[i] = e
		}(i)
	}
	wg.Wait()

	// The loser retries against fresh state and lands on the idempotent
	// no-op path, so both callers succeed.
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	evs, e := repo.ListEvents(ctx, order.OrderID)
	require.NoError(t, e)
	var ready int
	for _, ev := range evs {
		if ev.ToStatus == models.ItemStatusReady {
			ready++
		}
	}
	assert.Equal(t, 1, ready)

	got, e := repo.GetByNumber(ctx, "rest-1", order.OrderNumber)
	require.NoError(t, e)
	assert.Equal(t, uint64(2), got.LastSeq)
}

// stallingOrderRepo pauses the first successful commit before returning,
// widening the window between a write landing and its caller resuming.
type stallingOrderRepo struct {
	core.IOrderRepo
	once sync.Once
}

func (r *stallingOrderRepo) CommitTransition(ctx context.Context, order models.Order, ev models.TransitionEvent, expectedSeq uint64) error {
	err := r.IOrderRepo.CommitTransition(ctx, order, ev, expectedSeq)
	if err == nil {
		r.once.Do(func() { time.Sleep(300 * time.Millisecond) })
	}
	return err
}

func TestTransitionPublishesInCommitOrder(t *testing.T) {
	sink := &captureSink{}
	repo := &stallingOrderRepo{IOrderRepo: memory.NewOrderRepo()}
	svc := newOrderService(repo, sink)
	order := placeTestOrder(t, svc)
	ctx := context.Background()

	// Two writers race on different items. The first committer is stalled
	// after its write, so without commit-and-publish serialization the
	// second event would reach the sink first.
	var wg sync.WaitGroup
	errs := make([]error, len(order.Items))
	for i, it := range order.Items {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			_, e := svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)
			errs[i] = e
		}(i, it.ItemID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var seqs []uint64
	for _, ev := range sink.events() {
		if ev.SequenceNo > 0 {
			seqs = append(seqs, ev.SequenceNo)
		}
	}
	assert.Equal(t, []uint64{1, 2}, seqs)
}

func TestTransitionRejectsSkippedStep(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})
	order := placeTestOrder(t, svc)

	_, err := svc.Transition(context.Background(), kitchenStaff(), order.OrderNumber, order.Items[0].ItemID, models.ItemStatusReady)
	assert.ErrorIs(t, err, core.ErrIllegalTransition)
}

func TestTransitionRoleEnforcement(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()
	itemID := order.Items[0].ItemID

	// A waiter cannot start preparation.
	_, err := svc.Transition(ctx, waiterStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)
	assert.ErrorIs(t, err, core.ErrForbidden)

	// Cancellation is managerial only.
	_, err = svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusCancelled)
	assert.ErrorIs(t, err, core.ErrForbidden)

	manager := models.Principal{ActorID: "mgr-1", Role: models.RoleManager, RestaurantID: "rest-1"}
	resp, e := svc.Transition(ctx, manager, order.OrderNumber, itemID, models.ItemStatusCancelled)
	require.NoError(t, e)
	assert.Equal(t, models.ItemStatusCancelled, resp.Item.Status)
}

func TestCloseOrderLifecycle(t *testing.T) {
	repo := memory.NewOrderRepo()
	svc := newOrderService(repo, &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()

	// Not servable yet.
	_, e := svc.CloseOrder(ctx, waiterStaff(), order.OrderNumber)
	assert.ErrorIs(t, e, core.ErrIllegalTransition)

	for _, it := range order.Items {
		require.NoError(t, transitionErr(svc.Transition(ctx, kitchenStaff(), order.OrderNumber, it.ItemID, models.ItemStatusInProgress)))
		require.NoError(t, transitionErr(svc.Transition(ctx, kitchenStaff(), order.OrderNumber, it.ItemID, models.ItemStatusReady)))
		require.NoError(t, transitionErr(svc.Transition(ctx, waiterStaff(), order.OrderNumber, it.ItemID, models.ItemStatusServed)))
	}

	closed, e := svc.CloseOrder(ctx, waiterStaff(), order.OrderNumber)
	require.NoError(t, e)
	require.NotNil(t, closed.ClosedAt)

	// Idempotent.
	again, e := svc.CloseOrder(ctx, waiterStaff(), order.OrderNumber)
	require.NoError(t, e)
	assert.NotNil(t, again.ClosedAt)

	// Closed orders reject further transitions.
	_, e = svc.Transition(ctx, kitchenStaff(), order.OrderNumber, order.Items[0].ItemID, models.ItemStatusInProgress)
	assert.ErrorIs(t, e, core.ErrOrderClosed)

	// And drop out of the active set.
	active, e := svc.KitchenOrders(ctx, kitchenStaff(), "")
	require.NoError(t, e)
	assert.Empty(t, active)
}

func TestCloseOrderCustomerForbidden(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})
	order := placeTestOrder(t, svc)

	_, e := svc.CloseOrder(context.Background(), customer(), order.OrderNumber)
	assert.ErrorIs(t, e, core.ErrForbidden)
}

func TestGetOrderScoping(t *testing.T) {
	repo := memory.NewOrderRepo()
	svc := newOrderService(repo, &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()

	detail, e := svc.GetOrder(ctx, customer(), order.OrderNumber)
	require.NoError(t, e)
	assert.Equal(t, order.OrderID, detail.Order.OrderID)

	otherTable := customer()
	otherTable.TableID = "table-9"
	_, e = svc.GetOrder(ctx, otherTable, order.OrderNumber)
	assert.ErrorIs(t, e, core.ErrForbidden)

	// Staff see any order in their restaurant.
	_, e = svc.GetOrder(ctx, waiterStaff(), order.OrderNumber)
	assert.NoError(t, e)

	otherRestaurant := waiterStaff()
	otherRestaurant.RestaurantID = "rest-2"
	_, e = svc.GetOrder(ctx, otherRestaurant, order.OrderNumber)
	assert.ErrorIs(t, e, core.ErrOrderNotFound)
}

func TestGetOrderEventLogIsReplayable(t *testing.T) {
	repo := memory.NewOrderRepo()
	svc := newOrderService(repo, &captureSink{})
	order := placeTestOrder(t, svc)
	ctx := context.Background()
	itemID := order.Items[0].ItemID

	require.NoError(t, transitionErr(svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusInProgress)))
	require.NoError(t, transitionErr(svc.Transition(ctx, kitchenStaff(), order.OrderNumber, itemID, models.ItemStatusReady)))

	detail, e := svc.GetOrder(ctx, waiterStaff(), order.OrderNumber)
	require.NoError(t, e)
	require.Len(t, detail.Events, 2)
	for i, ev := range detail.Events {
		assert.Equal(t, uint64(i+1), ev.SequenceNo)
	}
	assert.Equal(t, detail.Events[1].SequenceNo, detail.Order.LastSeq)
}

func TestKitchenOrdersStationFilter(t *testing.T) {
	svc := newOrderService(memory.NewOrderRepo(), &captureSink{})
	placeTestOrder(t, svc)
	ctx := context.Background()

	pizza, e := svc.KitchenOrders(ctx, kitchenStaff(), "pizza")
	require.NoError(t, e)
	assert.Len(t, pizza, 1)

	grill, e := svc.KitchenOrders(ctx, kitchenStaff(), "grill")
	require.NoError(t, e)
	assert.Empty(t, grill)

	_, e = svc.KitchenOrders(ctx, customer(), "")
	assert.ErrorIs(t, e, core.ErrForbidden)
}

// transitionErr discards the response so a transition call can sit inside a
// require chain.
func transitionErr(_ dto.TransitionResponse, e error) error { return e }
