package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// TicketLogFile is the file, inside the consumer's log directory, that
// receives one line per ticket event.
const TicketLogFile = "tickets.log"

const maxBackoff = 30 * time.Second

// Consumer listens to the ticket.events queue and appends every event to
// <LogDir>/tickets.log.
type Consumer struct {
	URL    string
	LogDir string
	Logger echo.Logger
}

// Run connects to RabbitMQ, declares the ticket.events queue (durable) and
// consumes messages until ctx is cancelled.  A lost connection is
// re-dialled with exponential backoff.  Offending messages are rejected
// without requeue so the consumer keeps running.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Logger.Warnf("ticket-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Logger.Warnf("ticket-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Logger.Warnf("ticket-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(TicketQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TicketQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.Logger.Errorf("ticket-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.LogDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.LogDir, TicketLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(ev.LogLine() + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
