package subscriber

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

func TestParseEvent(t *testing.T) {
	ev := models.TransitionEvent{
		EventID:     "ev-1",
		OrderNumber: "ORD_20260828_001",
		FromStatus:  models.ItemStatusNew,
		ToStatus:    models.ItemStatusInProgress,
		SequenceNo:  1,
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	got, err := parseEvent(body)
	require.NoError(t, err)
	assert.Equal(t, ev.OrderNumber, got.OrderNumber)
	assert.Equal(t, ev.ToStatus, got.ToStatus)

	_, err = parseEvent([]byte("not json"))
	assert.Error(t, err)

	_, err = parseEvent([]byte("{}"))
	assert.Error(t, err)
}

func TestRecentRingIsBounded(t *testing.T) {
	s := New(nil, "order.#", "test", logger.NewNop())

	for i := 0; i < RecentCap+25; i++ {
		s.remember(models.TransitionEvent{
			OrderNumber: fmt.Sprintf("ORD_%03d", i),
			SequenceNo:  uint64(i),
		})
	}

	recent := s.Recent()
	require.Len(t, recent, RecentCap)
	// Oldest retained entry is the first one after the overflow.
	assert.Equal(t, uint64(25), recent[0].SequenceNo)
	assert.Equal(t, uint64(RecentCap+24), recent[len(recent)-1].SequenceNo)
}
