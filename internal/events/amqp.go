package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPChannel is the part of *amqp.Channel the publisher uses.
type AMQPChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher forwards bus events to a topic exchange, routed by event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  AMQPChannel
	exchange string
	mu       sync.Mutex
	logger   *zerolog.Logger
}

// DialAMQP connects to the broker and declares the exchange.
func DialAMQP(url, exchange string, logger *zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares a durable topic exchange on ch.
func NewAMQPPublisher(ch AMQPChannel, exchange string, logger *zerolog.Logger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{channel: ch, exchange: exchange, logger: logger}, nil
}

// Handle is an EventHandler that publishes the event.
func (p *AMQPPublisher) Handle(event *Event) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		Type:         event.Type,
		Body:         event.Payload,
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	err := p.channel.Publish(p.exchange, event.Type, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug().Str("event_type", event.Type).Str("exchange", p.exchange).Msg("event published to broker")
	return nil
}

func (p *AMQPPublisher) Close() error {
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
