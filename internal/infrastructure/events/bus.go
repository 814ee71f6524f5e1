// Package events provides the in-process event bus used by the release
// service. Every event is written to the structured log, then delivered
// synchronously to subscribers of its type and to wildcard subscribers.
package events

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/strapi/strapi-sub004/internal/ports"
)

// AllEvents subscribes a handler to every event type.
const AllEvents = "*"

// Bus is a ports.EventPublisher that logs each event before dispatching it.
type Bus struct {
	logger ports.Logger
	mu     sync.RWMutex
	subs   map[string][]handlerEntry
	nextID int
}

type handlerEntry struct {
	id      int
	handler ports.EventHandler
}

// NewBus creates an event bus logging through logger.
func NewBus(logger ports.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]handlerEntry),
	}
}

// Publish logs the event and runs its handlers in subscription order. Handler
// failures and panics are logged and never stop delivery.
func (b *Bus) Publish(ctx context.Context, event ports.DomainEvent) error {
	if b == nil || event == nil {
		return nil
	}

	b.mu.RLock()
	handlers := make([]handlerEntry, 0, len(b.subs[event.EventType()])+len(b.subs[AllEvents]))
	handlers = append(handlers, b.subs[event.EventType()]...)
	handlers = append(handlers, b.subs[AllEvents]...)
	b.mu.RUnlock()

	if b.logger != nil {
		b.logger.Info(ctx, "domain event", payloadFields(event)...)
	}

	for _, entry := range handlers {
		if err := b.deliver(ctx, entry.handler, event); err != nil && b.logger != nil {
			b.logger.Warn(ctx, "event handler failed", "event_type", event.EventType(), "error", err)
		}
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, handler ports.EventHandler, event ports.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers handler for eventType, or for every event when
// eventType is AllEvents.
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) (ports.Subscription, error) {
	if b == nil {
		return nil, fmt.Errorf("event bus is nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler for %q is nil", eventType)
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return unsubscribeFunc(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.subs[eventType]
		for i, entry := range entries {
			if entry.id == id {
				b.subs[eventType] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}), nil
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }

func payloadFields(event ports.DomainEvent) []interface{} {
	fields := []interface{}{"event_type", event.EventType()}
	switch payload := event.Payload().(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(payload))
		for key := range payload {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fields = append(fields, key, payload[key])
		}
	case nil:
	default:
		fields = append(fields, "payload", payload)
	}
	return fields
}

var _ ports.EventPublisher = (*Bus)(nil)
