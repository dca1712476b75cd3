package events

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Bus is a synchronous in-process event bus.
// Handler errors and panics are logged and never reach the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register registers a handler for the events it handles.
func (b *Bus) Register(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, eventType := range handler.Handles() {
		b.handlers[eventType] = append(b.handlers[eventType], handler)
		b.logger.Debug("registered event handler", zap.String("event_type", eventType))
	}
}

// Subscribe registers fn for a single event type.
func (b *Bus) Subscribe(eventType string, fn func(Event) error) {
	b.Register(NewHandlerFunc([]string{eventType}, fn))
}

// Publish dispatches an event to all registered handlers in registration order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventType()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no handlers registered for event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
		)
		return
	}

	for _, handler := range handlers {
		if err := b.dispatch(handler, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err),
			)
		}
	}
}

func (b *Bus) dispatch(handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(event)
}
