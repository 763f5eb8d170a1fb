// Package events is an in-process bus for catalog changes. The registry, the
// reload manager and the sync engine publish; the admin websocket stream and
// logging subscribe.
package events

import (
	"sync"
	"time"
)

// Type identifies what happened.
type Type string

const (
	CommandRegistered Type = "command_registered"
	CommandEnabled    Type = "command_enabled"
	CommandDisabled   Type = "command_disabled"
	CommandReloaded   Type = "command_reloaded"
	CommandsSynced    Type = "commands_synced"
)

// Event is one catalog change.
type Event struct {
	Type   Type      `json:"type"`
	Name   string    `json:"name,omitempty"`
	Module string    `json:"module,omitempty"`
	Scope  string    `json:"scope,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus fans events out to subscribers. The zero value is not usable; call NewBus.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

// Publish stamps e and delivers it to every subscriber. A nil bus drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
