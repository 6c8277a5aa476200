package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shadowsim/corengine/internal/engine"
	"github.com/shadowsim/corengine/internal/simtime"
)

func TestHost_PeekAndPopOrdering(t *testing.T) {
	var delivered []simtime.Time
	h := New(1, func(w *engine.Worker, ev engine.Event) {
		delivered = append(delivered, ev.DeliveryTime())
	})

	h.PushLocalEvent(engine.NewEvent(30, 0, 1, nil))
	h.PushLocalEvent(engine.NewEvent(10, 0, 1, nil))
	h.PushLocalEvent(engine.NewEvent(20, 0, 1, nil))

	t0, ok := h.PeekNextDeliveryTime()
	require.True(t, ok)
	require.Equal(t, simtime.Time(10), t0)

	h.PopAndDeliver(nil, 100)

	require.Equal(t, []simtime.Time{10, 20, 30}, delivered)
}

func TestHost_PopAndDeliverRespectsWindowBound(t *testing.T) {
	var delivered []simtime.Time
	h := New(1, func(w *engine.Worker, ev engine.Event) {
		delivered = append(delivered, ev.DeliveryTime())
	})

	h.PushLocalEvent(engine.NewEvent(10, 0, 1, nil))
	h.PushLocalEvent(engine.NewEvent(200, 0, 1, nil))

	h.PopAndDeliver(nil, 100)

	require.Equal(t, []simtime.Time{10}, delivered)

	next, ok := h.PeekNextDeliveryTime()
	require.True(t, ok)
	require.Equal(t, simtime.Time(200), next)
}

func TestHost_EmptyQueuePeek(t *testing.T) {
	h := New(1, func(w *engine.Worker, ev engine.Event) {})
	_, ok := h.PeekNextDeliveryTime()
	require.False(t, ok)
}
