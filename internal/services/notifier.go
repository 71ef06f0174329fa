package services

import "sync"

// Event names the fire-and-forget signals presentation layers consume.
type Event string

const (
	EventActivityStarted Event = "activity-started"
	EventActivityStopped Event = "activity-stopped"
	EventPeriodReset     Event = "period-reset"
)

// Notifier is a small in-process pub/sub registry. Delivery is
// synchronous and best-effort; no acknowledgement or replay.
type Notifier struct {
	mu       sync.RWMutex
	handlers []func(event Event, detail string)
}

// NewNotifier creates an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe registers a handler for all events. Handlers run on the
// emitting goroutine and must not block.
func (n *Notifier) Subscribe(handler func(event Event, detail string)) {
	if handler == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, handler)
}

// Publish delivers an event to every subscriber. Detail carries the
// period kind for EventPeriodReset and is empty otherwise.
func (n *Notifier) Publish(event Event, detail string) {
	n.mu.RLock()
	handlers := make([]func(Event, string), len(n.handlers))
	copy(handlers, n.handlers)
	n.mu.RUnlock()

	for _, handler := range handlers {
		handler(event, detail)
	}
}
