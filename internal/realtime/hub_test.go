package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func recvUpdate(t *testing.T, ch chan []byte) UpdateEvent {
	t.Helper()
	select {
	case payload, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		var ev UpdateEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		return ev
	default:
		t.Fatal("expected a buffered event")
		return UpdateEvent{}
	}
}

func TestPublishReachesEverySubscriber(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("d-1")
	b := h.Subscribe("d-1")

	h.Publish("d-1", NewUpdateEvent("d-1", json.RawMessage(`{"classes":[]}`), 2, nil))

	for _, ch := range []chan []byte{a, b} {
		ev := recvUpdate(t, ch)
		require.Equal(t, "update", ev.Type)
		require.Equal(t, uint64(2), ev.Version)
	}
}

func TestPublishIsScopedToDiagram(t *testing.T) {
	h := NewHub()
	other := h.Subscribe("d-2")

	h.Publish("d-1", NewUpdateEvent("d-1", nil, 1, nil))

	select {
	case <-other:
		t.Fatal("subscriber of another diagram must not receive the event")
	default:
	}
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	h := NewHub()
	h.Publish("d-1", NewUpdateEvent("d-1", nil, 1, nil))

	late := h.Subscribe("d-1")
	select {
	case <-late:
		t.Fatal("events are not replayed to late subscribers")
	default:
	}
}

func TestEventsArriveInPublishOrder(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("d-1")

	h.Publish("d-1", NewUpdateEvent("d-1", nil, 1, nil))
	h.Publish("d-1", NewUpdateEvent("d-1", nil, 2, nil))

	require.Equal(t, uint64(1), recvUpdate(t, ch).Version)
	require.Equal(t, uint64(2), recvUpdate(t, ch).Version)
}

func TestUnsubscribeClosesChannelAndClearsEntry(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("d-1")
	require.Equal(t, 1, h.Subscribers("d-1"))

	h.Unsubscribe("d-1", ch)
	require.Zero(t, h.Subscribers("d-1"))
	_, open := <-ch
	require.False(t, open)

	// Unsubscribing twice must not panic on a double close.
	h.Unsubscribe("d-1", ch)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	h := NewHub()
	slow := h.Subscribe("d-1")

	// Fill the buffer, then publish once more to overflow it.
	for i := 0; i <= subscriberBuffer; i++ {
		h.Publish("d-1", NewUpdateEvent("d-1", nil, uint64(i+1), nil))
	}
	require.Zero(t, h.Subscribers("d-1"))

	// The channel was closed after its buffered events; drain to the close.
	got := 0
	for range slow {
		got++
	}
	require.Equal(t, subscriberBuffer, got)
}

func TestPublishWithoutSubscribersIsNoOp(t *testing.T) {
	h := NewHub()
	h.Publish("d-1", NewUpdateEvent("d-1", nil, 1, nil))
	require.Zero(t, h.Subscribers("d-1"))
}
