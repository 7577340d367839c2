package model

import "time"

// Ticket is a sold seat for a screening.  A ticket with Cancelled=false is
// "active" and counts against the hall capacity; at most one active ticket
// may hold a given seat number per screening.
type Ticket struct {
	ID           uint64    `json:"id"`
	ScreeningID  uint64    `json:"screeningId"`
	CustomerID   uint64    `json:"customerId"`
	SeatNumber   int       `json:"seatNumber"`
	PurchaseTime time.Time `json:"purchaseTime"`
	Cancelled    bool      `json:"isCancelled"`
}
