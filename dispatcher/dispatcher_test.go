package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	h := New()
	sub := h.Subscribe()

	h.PublishProviderIdChanged("TEST00")
	h.PublishLatencyUpdate("TEST00", 1.5)

	ev1 := <-sub.Events
	assert.Equal(t, KindProviderIdChanged, ev1.Kind)
	assert.Equal(t, "TEST00", ev1.StaID)

	ev2 := <-sub.Events
	assert.Equal(t, KindLatencyUpdate, ev2.Kind)
	assert.InDelta(t, 1.5, ev2.LatencySeconds, 1e-9)
}

func TestFIFOOrderPerPublisherSubscriberPair(t *testing.T) {
	h := New()
	sub := h.Subscribe()

	for i := 0; i < 10; i++ {
		h.PublishOutage("TEST00", OutageKind(i%4))
	}

	for i := 0; i < 10; i++ {
		ev := <-sub.Events
		require.Equal(t, KindOutage, ev.Kind)
		assert.Equal(t, OutageKind(i%4), ev.Outage)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := New()
	sub := h.Subscribe()
	h.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed after Unsubscribe")

	// Publishing after unsubscribe must not reach the removed subscriber
	// or panic on the closed channel.
	assert.NotPanics(t, func() { h.PublishRawBytes("TEST00", []byte{1, 2, 3}) })
}

func TestSlowSubscriberDropsRatherThanBlocks(t *testing.T) {
	h := New()
	sub := h.Subscribe()

	for i := 0; i < subscriberQueueSize+10; i++ {
		h.PublishRawBytes("TEST00", []byte{byte(i)})
	}

	assert.LessOrEqual(t, len(sub.Events), subscriberQueueSize)
}

func TestMultipleSubscribersEachGetTheirOwnCopy(t *testing.T) {
	h := New()
	subA := h.Subscribe()
	subB := h.Subscribe()

	h.PublishProviderIdChanged("STA1")

	evA := <-subA.Events
	evB := <-subB.Events
	assert.Equal(t, "STA1", evA.StaID)
	assert.Equal(t, "STA1", evB.StaID)
}
