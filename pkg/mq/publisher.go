package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// DefaultExchange is used when the configured exchange name is empty.
const DefaultExchange = "projtrack.events"

const appID = "projtrack"

var ErrClosed = errors.New("mq: publisher connection closed")

// Publisher pushes bus events onto a durable topic exchange.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// durable, not auto-deleted
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
	}, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// IsConnected checks if the publisher connection is still alive
func (p *Publisher) IsConnected() bool {
	if p.conn == nil || p.channel == nil {
		return false
	}
	return !p.conn.IsClosed()
}

// Publish sends an already-encoded JSON body with the given routing key.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.IsConnected() {
		return ErrClosed
	}

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			AppId:        appID,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}
