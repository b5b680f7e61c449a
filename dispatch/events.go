package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-carrier-billing/core"
)

// EventBus is the in-process observer list for operator lifecycle events.
// Handlers run synchronously in subscription order; a failing handler is
// logged and does not stop the rest.
type EventBus struct {
	mu       sync.RWMutex
	handlers []core.OperatorEventHandler
	observer core.Observer
}

func NewEventBus(observer core.Observer) *EventBus {
	return &EventBus{observer: observer}
}

func (b *EventBus) Subscribe(handler core.OperatorEventHandler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

func (b *EventBus) Publish(ctx context.Context, event core.OperatorEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	b.mu.RLock()
	handlers := make([]core.OperatorEventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.observer.Error(ctx, "operator event handler failed", map[string]any{
				"event":         event.Name,
				"operator_code": event.OperatorCode,
				"error":         err.Error(),
			})
		}
	}
	return nil
}

// OperatorEventFunc adapts a plain function to the handler interface.
type OperatorEventFunc func(ctx context.Context, event core.OperatorEvent) error

func (f OperatorEventFunc) Handle(ctx context.Context, event core.OperatorEvent) error {
	return f(ctx, event)
}

var _ core.OperatorEventBus = (*EventBus)(nil)
