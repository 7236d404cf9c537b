package bus

import "time"

// EventBus is a thread-safe, in-process pub/sub bus used to observe asset and
// scene lifecycle changes.
//
// Delivery is synchronous: Publish runs every handler subscribed to
// Event.Type() in the caller goroutine and joins their errors. Handlers should
// be quick; heavy work belongs in a goroutine of their own.
type EventBus interface {
	// Publish delivers the event to all active subscribers of event.Type().
	Publish(event Event) error
	// PublishAsync publishes in a separate goroutine. The returned channel
	// receives the joined handler error (or nil) and is then closed.
	PublishAsync(event Event) <-chan error
	// Subscribe registers a handler for one event type.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is ignored.
	Unsubscribe(Subscription) error
	// Metrics returns a snapshot of the delivery counters.
	Metrics() Metrics
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler bound to an event type.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Metrics holds delivery counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	Subscribers       uint64
}
