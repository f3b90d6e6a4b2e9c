// Package events is the in-process publish/subscribe bus connecting the
// record store and weekly manager to the views and the orchestrator.
package events

import (
	"context"
	"fmt"
	"sync"

	"projtrack/pkg/metrics"

	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, evt Event) error

type subscription struct {
	name    string
	handler HandlerFunc
}

// Bus dispatches synchronously, in subscription order, on the publishing
// goroutine.
type Bus struct {
	mu     sync.RWMutex
	routes map[string][]subscription
	logger *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		routes: make(map[string][]subscription),
		logger: logger,
	}
}

func (b *Bus) Subscribe(topic, name string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[topic] = append(b.routes[topic], subscription{name: name, handler: h})
}

// Publish encodes payload and runs every handler of the topic. Handler
// failures are logged, they never stop the fan-out.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	evt, err := NewEvent(topic, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	b.Dispatch(ctx, evt)
	return nil
}

func (b *Bus) Dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.routes[evt.Type]...)
	b.mu.RUnlock()

	metrics.IncrementEventPublish(evt.Type)
	if len(subs) == 0 {
		b.logger.Debug("No handler for event", zap.String("topic", evt.Type))
		return
	}

	for _, s := range subs {
		b.handle(ctx, s, evt)
	}
}

func (b *Bus) handle(ctx context.Context, s subscription, evt Event) {
	// panic 防御
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("Event handler panic recovered",
				zap.String("topic", evt.Type),
				zap.String("handler", s.name),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := s.handler(ctx, evt); err != nil {
		b.logger.Error("Event handler failed",
			zap.String("topic", evt.Type),
			zap.String("handler", s.name),
			zap.Error(err),
		)
	}
}
