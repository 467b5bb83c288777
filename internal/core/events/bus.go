package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is anything the bus can route. Subscribers type-assert to the
// concrete event they registered for.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

// BaseEvent supplies the routing fields for concrete events.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{ID: uuid.NewString(), Type: eventType, Timestamp: time.Now()}
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// Publisher is the dispatch side of the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Handler func(ctx context.Context, event Event) error

// ErrBusClosed is returned by Publish once Close has been called.
var ErrBusClosed = errors.New("event bus is closed")

// EventBus is an in-process fan-out of events to subscribers. Asynchronous
// deliveries are tracked so Close can wait for them.
type EventBus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
	inflight sync.WaitGroup
	closed   bool
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Info("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

// Publish dispatches event to every subscriber on its own goroutine and
// returns immediately. Handler errors and panics are logged and dropped.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return ErrBusClosed
	}

	handlers := eb.handlers[event.EventType()]
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.DebugContext(ctx, "publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	// handlers outlive the request that published the event
	ctx = context.WithoutCancel(ctx)
	eb.inflight.Add(len(handlers))
	for _, handler := range handlers {
		go eb.deliver(ctx, handler, event)
	}

	return nil
}

func (eb *EventBus) deliver(ctx context.Context, handler Handler, event Event) {
	defer eb.inflight.Done()
	defer func() {
		if rec := recover(); rec != nil {
			eb.logger.ErrorContext(ctx, "event handler panicked",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"panic", rec)
		}
	}()

	if err := handler(ctx, event); err != nil {
		eb.logger.WarnContext(ctx, "event handler failed",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
	}
}

// PublishSync runs subscribers in order and stops at the first error.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	eb.mu.RLock()
	closed := eb.closed
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()

	if closed {
		return ErrBusClosed
	}
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.InfoContext(ctx, "publishing event synchronously",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			eb.logger.ErrorContext(ctx, "event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}

	return nil
}

// Close stops accepting events and waits for in-flight deliveries until ctx
// is done.
func (eb *EventBus) Close(ctx context.Context) error {
	eb.mu.Lock()
	eb.closed = true
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for event handlers: %w", ctx.Err())
	}
}
