package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes ticket events to RabbitMQ.  The connection is
// opened lazily and reopened after a failure.  Errors are logged and
// returned so callers can ignore them without interrupting the request.
type Publisher struct {
	url    string
	logger echo.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
	// dial is replaced in tests.
	dial func(url string) (*amqp.Connection, channel, error)
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, logger echo.Logger) *Publisher {
	return &Publisher{url: url, logger: logger, dial: dialChannel}
}

func dialChannel(url string) (*amqp.Connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(TicketQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// Publish sends ev to the ticket.events queue as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		conn, ch, err := p.dial(p.url)
		if err != nil {
			p.logger.Warnf("rabbitmq: dial failed: %v", err)
			return err
		}
		p.conn, p.ch = conn, ch
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// Default exchange; the routing key is the queue name.
	if err := p.ch.PublishWithContext(ctx, "", TicketQueueName, false, false, pub); err != nil {
		p.logger.Warnf("rabbitmq: publish failed: %v", err)
		p.reset()
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
