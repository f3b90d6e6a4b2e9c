package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"projtrack/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// Forwarder is the external broker side, satisfied by *mq.Publisher.
type Forwarder interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Bridge forwards bus events to an external broker behind a circuit breaker.
// The event type is the routing key.
type Bridge struct {
	forwarder Forwarder
	breaker   *circuitbreaker.CircuitBreaker
	timeout   time.Duration
	logger    *zap.Logger
}

func NewBridge(forwarder Forwarder, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Bridge {
	return &Bridge{
		forwarder: forwarder,
		breaker:   breaker,
		timeout:   5 * time.Second,
		logger:    logger,
	}
}

// Attach subscribes the bridge to every known topic.
func (br *Bridge) Attach(bus *Bus) {
	for _, topic := range AllTopics {
		bus.Subscribe(topic, "mq-bridge", br.Forward)
	}
}

func (br *Bridge) Forward(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	err = br.breaker.Execute(func() error {
		pubCtx, cancel := context.WithTimeout(ctx, br.timeout)
		defer cancel()
		return br.forwarder.Publish(pubCtx, evt.Type, body)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		br.logger.Warn("Broker circuit open, event dropped", zap.String("topic", evt.Type))
		return nil
	}
	return err
}
