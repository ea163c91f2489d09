package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-watch/console/internal/event"
)

func testEvent(typ event.Type) event.Event {
	return event.Event{
		Type:      typ,
		SessionID: "sess-test",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatchOrder(t *testing.T) {
	r := NewRouter()
	var order []string

	r.On(string(event.RiskUpdate), func(event.Event) { order = append(order, "specific-1") })
	r.On(Wildcard, func(event.Event) { order = append(order, "wildcard-1") })
	r.On(string(event.RiskUpdate), func(event.Event) { order = append(order, "specific-2") })
	r.On(Wildcard, func(event.Event) { order = append(order, "wildcard-2") })

	r.Publish(testEvent(event.RiskUpdate))

	require.Equal(t, []string{"specific-1", "specific-2", "wildcard-1", "wildcard-2"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	r := NewRouter()
	var got int
	off := r.On(string(event.RiskUpdate), func(event.Event) { got++ })

	r.Publish(testEvent(event.RiskUpdate))
	r.Publish(testEvent(event.RiskUpdate))
	off()
	r.Publish(testEvent(event.RiskUpdate))

	assert.Equal(t, 2, got)

	// Double-unsubscribe is a no-op.
	off()
	assert.Equal(t, 0, r.HandlerCount())
}

func TestUnsubscribeDuringDispatchDeferredToNextPass(t *testing.T) {
	r := NewRouter()
	var calls []string

	var offB func()
	r.On(Wildcard, func(event.Event) {
		calls = append(calls, "a")
		offB() // must not stop b from running this pass
	})
	offB = r.On(Wildcard, func(event.Event) { calls = append(calls, "b") })

	r.Publish(testEvent(event.ThreatDetected))
	require.Equal(t, []string{"a", "b"}, calls)

	r.Publish(testEvent(event.ThreatDetected))
	require.Equal(t, []string{"a", "b", "a"}, calls)
}

func TestSubscribeDuringDispatchAffectsNextPassOnly(t *testing.T) {
	r := NewRouter()
	var calls int

	r.On(Wildcard, func(event.Event) {
		if calls == 0 {
			r.On(Wildcard, func(event.Event) { calls += 100 })
		}
		calls++
	})

	r.Publish(testEvent(event.PageLoaded))
	assert.Equal(t, 1, calls, "late subscriber must not see the current event")

	r.Publish(testEvent(event.PageLoaded))
	assert.Equal(t, 102, calls)
}

func TestWildcardReceivesAllTypes(t *testing.T) {
	r := NewRouter()
	var got []event.Type
	r.On(Wildcard, func(ev event.Event) { got = append(got, ev.Type) })

	r.Publish(testEvent(event.Connected))
	r.Publish(testEvent(event.TrustUpdate))
	r.Publish(testEvent(event.SessionTerminated))

	assert.Equal(t, []event.Type{event.Connected, event.TrustUpdate, event.SessionTerminated}, got)
}

func TestClear(t *testing.T) {
	r := NewRouter()
	var got int
	r.On(string(event.RiskUpdate), func(event.Event) { got++ })
	r.On(Wildcard, func(event.Event) { got++ })

	r.Clear()
	r.Publish(testEvent(event.RiskUpdate))

	assert.Zero(t, got)
	assert.Zero(t, r.HandlerCount())
}

func TestClearFromInsideHandler(t *testing.T) {
	r := NewRouter()
	var calls []string
	r.On(Wildcard, func(event.Event) {
		calls = append(calls, "a")
		r.Clear()
	})
	r.On(Wildcard, func(event.Event) { calls = append(calls, "b") })

	r.Publish(testEvent(event.SystemReboot))
	r.Publish(testEvent(event.SystemReboot))

	// Current pass completes, next pass sees nothing.
	assert.Equal(t, []string{"a", "b"}, calls)
}
