package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Event
	unsubscribe := bus.Subscribe(func(e Event) { got = append(got, e) })

	bus.Publish(Event{Type: CommandEnabled, Name: "ping"})
	unsubscribe()
	unsubscribe()
	bus.Publish(Event{Type: CommandDisabled, Name: "ping"})

	if assert.Len(t, got, 1) {
		assert.Equal(t, CommandEnabled, got[0].Type)
		assert.False(t, got[0].At.IsZero(), "publish stamps the event time")
	}
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(Event{Type: CommandEnabled}) })
}
