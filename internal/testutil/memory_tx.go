package testutil

import (
	"context"
	"sort"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// memTx runs with DB.mu held by InTx, so it touches the tables directly.
type memTx struct{ t *tables }

var _ repository.InventoryTx = (*memTx)(nil)

func (x *memTx) LockScreening(_ context.Context, id uint64) (*model.Screening, error) {
	s, ok := x.t.screenings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	h, ok := x.t.halls[s.HallID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Hall = &h
	return &s, nil
}

func (x *memTx) LockHall(_ context.Context, id uint64) (*model.Hall, error) {
	h, ok := x.t.halls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (x *memTx) LockTicket(_ context.Context, id uint64) (*model.Ticket, error) {
	tk, ok := x.t.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tk, nil
}

func (x *memTx) GetMovie(_ context.Context, id uint64) (*model.Movie, error) {
	m, ok := x.t.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (x *memTx) GetCustomer(_ context.Context, id uint64) (*model.Customer, error) {
	c, ok := x.t.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (x *memTx) ActiveSeats(_ context.Context, screeningID uint64) ([]int, error) {
	seats := make([]int, 0)
	for _, tk := range x.t.tickets {
		if tk.ScreeningID == screeningID && !tk.Cancelled {
			seats = append(seats, tk.SeatNumber)
		}
	}
	sort.Ints(seats)
	return seats, nil
}

func (x *memTx) ScreeningIDsByHall(_ context.Context, hallID uint64) ([]uint64, error) {
	ids := make([]uint64, 0)
	for id, s := range x.t.screenings {
		if s.HallID == hallID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// seatHeld mirrors UNIQUE(screening_id, active_seat).
func (x *memTx) seatHeld(screeningID uint64, seat int, except uint64) bool {
	for _, tk := range x.t.tickets {
		if tk.ID != except && tk.ScreeningID == screeningID && !tk.Cancelled && tk.SeatNumber == seat {
			return true
		}
	}
	return false
}

func (x *memTx) InsertTickets(_ context.Context, tickets []*model.Ticket) error {
	for _, tk := range tickets {
		if _, ok := x.t.screenings[tk.ScreeningID]; !ok {
			return repository.ErrMissingReference
		}
		if _, ok := x.t.customers[tk.CustomerID]; !ok {
			return repository.ErrMissingReference
		}
		if !tk.Cancelled && x.seatHeld(tk.ScreeningID, tk.SeatNumber, 0) {
			return repository.ErrDuplicate
		}
		tk.ID = x.t.id()
		x.t.tickets[tk.ID] = *tk
	}
	return nil
}

func (x *memTx) CancelTicket(_ context.Context, id uint64) error {
	tk, ok := x.t.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	tk.Cancelled = true
	x.t.tickets[id] = tk
	return nil
}

func (x *memTx) SetTicketSeat(_ context.Context, id uint64, seat int) error {
	tk, ok := x.t.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !tk.Cancelled && x.seatHeld(tk.ScreeningID, seat, id) {
		return repository.ErrDuplicate
	}
	tk.SeatNumber = seat
	x.t.tickets[id] = tk
	return nil
}

func (x *memTx) DeleteTicket(_ context.Context, id uint64) error {
	if _, ok := x.t.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(x.t.tickets, id)
	return nil
}

func (x *memTx) InsertScreening(_ context.Context, s *model.Screening) error {
	if _, ok := x.t.movies[s.MovieID]; !ok {
		return repository.ErrMissingReference
	}
	if _, ok := x.t.halls[s.HallID]; !ok {
		return repository.ErrMissingReference
	}
	s.ID = x.t.id()
	row := *s
	row.Movie, row.Hall = nil, nil
	x.t.screenings[s.ID] = row
	return nil
}

func (x *memTx) UpdateScreening(_ context.Context, s *model.Screening) error {
	if _, ok := x.t.screenings[s.ID]; !ok {
		return repository.ErrNotFound
	}
	row := *s
	row.Movie, row.Hall = nil, nil
	x.t.screenings[s.ID] = row
	return nil
}

func (x *memTx) SetAvailableSeats(_ context.Context, screeningID uint64, n int) error {
	s, ok := x.t.screenings[screeningID]
	if !ok {
		return repository.ErrNotFound
	}
	s.AvailableSeats = n
	x.t.screenings[screeningID] = s
	return nil
}

func (x *memTx) UpdateHall(_ context.Context, h *model.Hall) error {
	if _, ok := x.t.halls[h.ID]; !ok {
		return repository.ErrNotFound
	}
	if x.t.hallNameTaken(h.Name, h.ID) {
		return repository.ErrDuplicate
	}
	x.t.halls[h.ID] = *h
	return nil
}
