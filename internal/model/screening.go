package model

import "time"

// Screening is a showing of a movie in a hall at a given time.
// AvailableSeats is a denormalised counter seeded from the hall capacity
// and kept equal to capacity minus the number of active tickets by the
// ticket service; nothing else writes it.
type Screening struct {
	ID             uint64    `json:"id"`
	MovieID        uint64    `json:"movieId"`
	HallID         uint64    `json:"hallId"`
	StartTime      time.Time `json:"startTime"`
	Price          float64   `json:"price"`
	AvailableSeats int       `json:"availableSeats"`

	// Populated by joined reads.
	Movie *Movie `json:"movie,omitempty"`
	Hall  *Hall  `json:"hall,omitempty"`
}

// Capacity returns the hall capacity, or zero when the hall is not loaded.
func (s *Screening) Capacity() int {
	if s.Hall == nil {
		return 0
	}
	return s.Hall.Capacity
}
