package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketEventLogLine(t *testing.T) {
	ev := TicketEvent{
		Type:           TicketPurchased,
		ScreeningID:    3,
		CustomerID:     7,
		TicketIDs:      []uint64{10, 11},
		Seats:          []int{4, 5},
		AvailableSeats: 18,
		OccurredAt:     "2026-01-02T15:04:05Z",
	}
	assert.Equal(t,
		"[2026-01-02T15:04:05Z] ticket.purchased | screening_id=3 | customer_id=7 | tickets=[10,11] | seats=[4,5] | available=18",
		ev.LogLine())
}

func TestConsumerHandleAppendsLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := &Consumer{LogDir: dir, Logger: log.New("test")}

	for _, typ := range []TicketEventType{TicketPurchased, TicketCancelled} {
		body, err := json.Marshal(TicketEvent{Type: typ, ScreeningID: 1, Seats: []int{2}})
		require.NoError(t, err)
		require.NoError(t, c.handle(body))
	}

	data, err := os.ReadFile(filepath.Join(dir, TicketLogFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "ticket.purchased")
	assert.Contains(t, lines[1], "ticket.cancelled")
}

func TestConsumerHandleRejectsBadMessages(t *testing.T) {
	c := &Consumer{LogDir: t.TempDir(), Logger: log.New("test")}
	assert.Error(t, c.handle([]byte("not json")))
	assert.Error(t, c.handle([]byte(`{"screening_id":1}`)))
}

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	failNext  bool
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.failNext {
		f.failNext = false
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	dials := 0
	p := NewPublisher("amqp://unused", log.New("test"))
	p.dial = func(string) (*amqp.Connection, channel, error) {
		dials++
		return nil, ch, nil
	}

	ev := TicketEvent{Type: TicketDeleted, ScreeningID: 9, TicketIDs: []uint64{1}}
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, 1, dials)
	require.Len(t, ch.published, 2)
	assert.Equal(t, []string{TicketQueueName, TicketQueueName}, ch.keys)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)

	var got TicketEvent
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, ev, got)
}

func TestPublisherRedialsAfterFailure(t *testing.T) {
	first := &fakeChannel{failNext: true}
	second := &fakeChannel{}
	chans := []*fakeChannel{first, second}
	p := NewPublisher("amqp://unused", log.New("test"))
	p.dial = func(string) (*amqp.Connection, channel, error) {
		ch := chans[0]
		chans = chans[1:]
		return nil, ch, nil
	}

	ev := TicketEvent{Type: TicketPurchased}
	assert.Error(t, p.Publish(context.Background(), ev))
	assert.True(t, first.closed)
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Len(t, second.published, 1)
}

func TestPublisherDialError(t *testing.T) {
	p := NewPublisher("amqp://unused", log.New("test"))
	p.dial = func(string) (*amqp.Connection, channel, error) {
		return nil, nil, errors.New("connection refused")
	}
	assert.Error(t, p.Publish(context.Background(), TicketEvent{Type: TicketPurchased}))
}

type slowSink struct {
	mu      sync.Mutex
	got     []TicketEvent
	release chan struct{}
}

func (s *slowSink) Publish(_ context.Context, ev TicketEvent) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return nil
}

func TestAsyncPublisherDrainsOnClose(t *testing.T) {
	sink := &slowSink{}
	p := NewAsyncPublisher(sink, log.New("test"), 8)
	for i := 1; i <= 5; i++ {
		require.NoError(t, p.Publish(context.Background(), TicketEvent{Type: TicketPurchased, ScreeningID: uint64(i)}))
	}
	p.Close()

	require.Len(t, sink.got, 5)
	for i, ev := range sink.got {
		assert.Equal(t, uint64(i+1), ev.ScreeningID)
	}
	assert.ErrorIs(t, p.Publish(context.Background(), TicketEvent{Type: TicketDeleted}), errClosed)
	p.Close()
}

func TestAsyncPublisherDropsWhenFull(t *testing.T) {
	sink := &slowSink{release: make(chan struct{})}
	p := NewAsyncPublisher(sink, log.New("test"), 1)

	// The worker blocks on the first event; the second fills the buffer.
	require.NoError(t, p.Publish(context.Background(), TicketEvent{Type: TicketPurchased, ScreeningID: 1}))
	deadline := time.Now().Add(2 * time.Second)
	for len(p.events) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, p.Publish(context.Background(), TicketEvent{Type: TicketPurchased, ScreeningID: 2}))
	assert.ErrorIs(t, p.Publish(context.Background(), TicketEvent{Type: TicketPurchased, ScreeningID: 3}), errBufferFull)

	close(sink.release)
	p.Close()
	assert.Len(t, sink.got, 2)
}

func TestAsyncPublisherPublishRacingClose(t *testing.T) {
	sink := &slowSink{}
	p := NewAsyncPublisher(sink, log.New("test"), 4)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := p.Publish(context.Background(), TicketEvent{Type: TicketPurchased, ScreeningID: uint64(i)})
				if err != nil && !errors.Is(err, errClosed) && !errors.Is(err, errBufferFull) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(i)
	}
	p.Close()
	wg.Wait()

	assert.ErrorIs(t, p.Publish(context.Background(), TicketEvent{Type: TicketCancelled}), errClosed)
}
