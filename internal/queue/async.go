package queue

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Sink is anything that can deliver a ticket event.  *Publisher is one.
type Sink interface {
	Publish(ctx context.Context, ev TicketEvent) error
}

// AsyncPublisher hands events to a background worker so broker latency
// never reaches the request.  When the buffer is full the event is
// dropped and logged.
type AsyncPublisher struct {
	sink    Sink
	logger  echo.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan TicketEvent
	done   chan struct{}
}

// NewAsyncPublisher starts the worker.  Call Close to drain and stop it.
func NewAsyncPublisher(sink Sink, logger echo.Logger, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AsyncPublisher{
		sink:    sink,
		logger:  logger,
		timeout: 5 * time.Second,
		events:  make(chan TicketEvent, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues ev and never blocks.  The context is not carried over:
// the request that produced the event may finish before delivery.
func (p *AsyncPublisher) Publish(_ context.Context, ev TicketEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		p.logger.Warnf("rabbitmq: event buffer full, dropping %s for screening %d", ev.Type, ev.ScreeningID)
		return errBufferFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		// The sink logs its own failures.
		_ = p.sink.Publish(ctx, ev)
		cancel()
	}
}

// Close stops accepting events and waits until the buffered ones have
// been handed to the sink.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()
	<-p.done
}
