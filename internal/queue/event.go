// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

import (
	"errors"
	"fmt"
	"strings"
)

// TicketQueueName is the durable queue carrying ticket inventory events.
const TicketQueueName = "ticket.events"

var (
	errBufferFull = errors.New("queue: event buffer full")
	errClosed     = errors.New("queue: publisher closed")
)

// TicketEventType names what happened to the tickets in an event.
type TicketEventType string

const (
	TicketPurchased TicketEventType = "ticket.purchased"
	TicketCancelled TicketEventType = "ticket.cancelled"
	TicketUpdated   TicketEventType = "ticket.updated"
	TicketDeleted   TicketEventType = "ticket.deleted"
)

// TicketEvent is published after a ticket write commits.  It carries
// enough for downstream consumers to log or notify without querying the
// primary database.
type TicketEvent struct {
	Type           TicketEventType `json:"type"`
	ScreeningID    uint64          `json:"screening_id"`
	CustomerID     uint64          `json:"customer_id"`
	TicketIDs      []uint64        `json:"ticket_ids"`
	Seats          []int           `json:"seats"`
	AvailableSeats int             `json:"available_seats"`
	OccurredAt     string          `json:"occurred_at"`
}

// LogLine renders the event as a single human-friendly line without the
// trailing newline.
func (e TicketEvent) LogLine() string {
	ids := make([]string, len(e.TicketIDs))
	for i, id := range e.TicketIDs {
		ids[i] = fmt.Sprint(id)
	}
	seats := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		seats[i] = fmt.Sprint(s)
	}
	return fmt.Sprintf("[%s] %s | screening_id=%d | customer_id=%d | tickets=[%s] | seats=[%s] | available=%d",
		e.OccurredAt, e.Type, e.ScreeningID, e.CustomerID,
		strings.Join(ids, ","), strings.Join(seats, ","), e.AvailableSeats)
}
