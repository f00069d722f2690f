// Package events is the in-process change notification bus. Publishing is
// synchronous and fire-and-forget: subscribers registered at publish time
// are invoked once, and a missed event is covered by the entity cache TTLs.
package events

import (
	"sync"
	"time"

	"github.com/ryanuber/go-glob"
)

// Topics published by the entity services.
const (
	TopicCategoryUpdated    = "category.updated"
	TopicCategorySync       = "category.sync"
	TopicTransactionChanged = "transaction.changed"
	TopicTemplateCreated    = "template.created"
	TopicTemplateUpdated    = "template.updated"
	TopicTemplateDeleted    = "template.deleted"
)

// Event is a change notification. For category renames, OldName and Name
// carry the previous and current category name so subscribers can surface a
// "renamed" message.
type Event struct {
	Topic   string    `json:"topic"`
	Kind    string    `json:"kind,omitempty"`
	Name    string    `json:"name,omitempty"`
	OldName string    `json:"old_name,omitempty"`
	At      time.Time `json:"at"`
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	pattern string
	handler Handler
}

// Bus dispatches events to subscribers. The zero value is not usable; use
// NewBus.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func NewBus() *Bus {
	return &Bus{
		subs: map[int]subscription{},
	}
}

// Subscribe registers handler for every topic matching pattern. Patterns use
// "*" as the wildcard, so "category.*" receives both category topics. The
// returned function removes the subscription.
func (b *Bus) Subscribe(pattern string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{pattern: pattern, handler: handler}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish synchronously invokes all handlers whose pattern matches the
// event's topic. Handlers run on the caller's goroutine; the bus carries no
// authority over data correctness.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, sub := range b.subs {
		if glob.Glob(sub.pattern, event.Topic) {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}
