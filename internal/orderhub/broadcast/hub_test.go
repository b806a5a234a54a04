package broadcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

func event(orderID string, seq uint64) models.TransitionEvent {
	return models.TransitionEvent{
		OrderID:      orderID,
		OrderNumber:  "ORD_20260828_001",
		RestaurantID: "r1",
		TableID:      "t5",
		Station:      "grill",
		FromStatus:   models.ItemStatusNew,
		ToStatus:     models.ItemStatusInProgress,
		SequenceNo:   seq,
	}
}

func TestChannelKeys(t *testing.T) {
	keys := ChannelKeys(event("o1", 1))
	assert.ElementsMatch(t, []string{
		"kitchen:r1:grill",
		"waiter:r1",
		"table:t5",
		"admin:r1",
	}, keys)
}

func TestFanoutToMatchingChannels(t *testing.T) {
	h := NewHub(logger.NewNop())

	kitchen := h.Subscribe("kitchen:r1:grill")
	admin := h.Subscribe("admin:r1")
	otherKitchen := h.Subscribe("kitchen:r1:fryer")
	otherRestaurant := h.Subscribe("admin:r2")

	h.Publish(event("o1", 1))

	assert.Len(t, kitchen.Events(), 1)
	assert.Len(t, admin.Events(), 1)
	assert.Len(t, otherKitchen.Events(), 0)
	assert.Len(t, otherRestaurant.Events(), 0)
}

func TestPerOrderOrdering(t *testing.T) {
	h := NewHub(logger.NewNop())
	sub := h.Subscribe("admin:r1")

	for seq := uint64(1); seq <= 5; seq++ {
		h.Publish(event("o1", seq))
	}

	for want := uint64(1); want <= 5; want++ {
		ev := <-sub.Events()
		assert.Equal(t, want, ev.SequenceNo)
	}
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	h := NewHub(logger.NewNop())
	sub := h.Subscribe("admin:r1")

	// Overfill the queue; Publish must not block and the overflow is
	// dropped for this subscriber only.
	total := cap(sub.ch) + 10
	for seq := 1; seq <= total; seq++ {
		h.Publish(event("o1", uint64(seq)))
	}

	assert.Equal(t, uint64(10), sub.Dropped())
	assert.Len(t, sub.ch, cap(sub.ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(logger.NewNop())
	sub := h.Subscribe("waiter:r1")

	h.Unsubscribe(sub)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount("waiter:r1"))

	// Publishing after unsubscribe reaches nobody and must not panic.
	h.Publish(event("o1", 1))

	// Double unsubscribe is a no-op.
	h.Unsubscribe(sub)
}

func TestRecentRingIsBounded(t *testing.T) {
	h := NewHub(logger.NewNop())
	sub := h.Subscribe("table:t5")

	for seq := 1; seq <= 40; seq++ {
		h.Publish(event("o1", uint64(seq)))
		// Drain so nothing is dropped for queue reasons.
		<-sub.Events()
	}

	recent := sub.Recent()
	require.LessOrEqual(t, len(recent), 32)
	assert.Equal(t, uint64(40), recent[len(recent)-1].SequenceNo)
}
