package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// EventPublisher receives ticket events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.TicketEvent) error
}

// InventoryService is the only writer of screenings.available_seats and
// the only place seat capacity and uniqueness are decided.  Every write
// runs in one inventory transaction that locks the screening first, so
// concurrent purchases for a screening are serialised; available seats
// are recomputed from the active tickets inside that transaction.
type InventoryService struct {
	store  repository.InventoryRepository
	events EventPublisher
	now    func() time.Time
}

// NewInventoryService returns a service over store.  events may be nil.
func NewInventoryService(store repository.InventoryRepository, events EventPublisher) *InventoryService {
	return &InventoryService{store: store, events: events, now: time.Now}
}

// WithClock sets the time source used for purchase times and the
// screening-started check.
func (s *InventoryService) WithClock(now func() time.Time) *InventoryService {
	s.now = now
	return s
}

func notFound(err error, what string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

func contains(seats []int, seat int) bool {
	for _, s := range seats {
		if s == seat {
			return true
		}
	}
	return false
}

func free(capacity, active int) int {
	if n := capacity - active; n > 0 {
		return n
	}
	return 0
}

// recount stores capacity minus the current active tickets and returns it.
func recount(ctx context.Context, tx repository.InventoryTx, sc *model.Screening) (int, error) {
	seats, err := tx.ActiveSeats(ctx, sc.ID)
	if err != nil {
		return 0, err
	}
	n := free(sc.Capacity(), len(seats))
	if err := tx.SetAvailableSeats(ctx, sc.ID, n); err != nil {
		return 0, err
	}
	sc.AvailableSeats = n
	return n, nil
}

func (s *InventoryService) publish(ctx context.Context, typ queue.TicketEventType, available int, tickets ...model.Ticket) {
	if s.events == nil || len(tickets) == 0 {
		return
	}
	ev := queue.TicketEvent{
		Type:           typ,
		ScreeningID:    tickets[0].ScreeningID,
		CustomerID:     tickets[0].CustomerID,
		AvailableSeats: available,
		OccurredAt:     s.now().UTC().Format(time.RFC3339),
	}
	for _, t := range tickets {
		ev.TicketIDs = append(ev.TicketIDs, t.ID)
		ev.Seats = append(ev.Seats, t.SeatNumber)
	}
	// Publish failures are logged by the publisher; the write has
	// already committed.
	_ = s.events.Publish(ctx, ev)
}

// CreateTicket sells seat on the screening to the customer.  Checks run in
// order: missing screening or customer, sold out, seat taken, seat beyond
// the hall capacity.
func (s *InventoryService) CreateTicket(ctx context.Context, screeningID, customerID uint64, seat int) (*model.Ticket, error) {
	if seat < 1 {
		return nil, ErrInvalidSeat
	}
	var (
		ticket    *model.Ticket
		available int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		sc, err := tx.LockScreening(ctx, screeningID)
		if err != nil {
			return notFound(err, "screening", screeningID)
		}
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return notFound(err, "customer", customerID)
		}
		active, err := tx.ActiveSeats(ctx, sc.ID)
		if err != nil {
			return err
		}
		capacity := sc.Capacity()
		if len(active) >= capacity {
			return ErrSeatsExhausted
		}
		if contains(active, seat) {
			return fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
		}
		if seat > capacity {
			return fmt.Errorf("%w: seat %d, capacity %d", ErrSeatOutOfRange, seat, capacity)
		}

		t := &model.Ticket{
			ScreeningID:  sc.ID,
			CustomerID:   customerID,
			SeatNumber:   seat,
			PurchaseTime: s.now().UTC(),
		}
		if err := tx.InsertTickets(ctx, []*model.Ticket{t}); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
			}
			return err
		}
		available = free(capacity, len(active)+1)
		if err := tx.SetAvailableSeats(ctx, sc.ID, available); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.TicketPurchased, available, *ticket)
	return ticket, nil
}

// BulkPurchase sells every seat in seats or none of them.  Checks run in
// order: missing screening or customer, not enough free seats, seats
// already taken, seat beyond the hall capacity, repeated seats.  All
// tickets share one purchase time.
func (s *InventoryService) BulkPurchase(ctx context.Context, screeningID, customerID uint64, seats []int) ([]model.Ticket, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: at least one seat is required", ErrInvalidInput)
	}
	for _, seat := range seats {
		if seat < 1 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
		}
	}

	var (
		sold      []model.Ticket
		available int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		sc, err := tx.LockScreening(ctx, screeningID)
		if err != nil {
			return notFound(err, "screening", screeningID)
		}
		if _, err := tx.GetCustomer(ctx, customerID); err != nil {
			return notFound(err, "customer", customerID)
		}
		active, err := tx.ActiveSeats(ctx, sc.ID)
		if err != nil {
			return err
		}
		capacity := sc.Capacity()
		if len(seats) > capacity-len(active) {
			return fmt.Errorf("%w: requested %d, free %d", ErrSeatsExhausted, len(seats), free(capacity, len(active)))
		}

		var taken []int
		maxSeat := 0
		for _, seat := range seats {
			if contains(active, seat) && !contains(taken, seat) {
				taken = append(taken, seat)
			}
			if seat > maxSeat {
				maxSeat = seat
			}
		}
		if len(taken) > 0 {
			return &SeatConflictError{Seats: taken}
		}
		if maxSeat > capacity {
			return fmt.Errorf("%w: seat %d, capacity %d", ErrSeatOutOfRange, maxSeat, capacity)
		}
		seen := make(map[int]struct{}, len(seats))
		for _, seat := range seats {
			if _, dup := seen[seat]; dup {
				return fmt.Errorf("%w: seat %d", ErrDuplicateSeat, seat)
			}
			seen[seat] = struct{}{}
		}

		now := s.now().UTC()
		batch := make([]*model.Ticket, len(seats))
		for i, seat := range seats {
			batch[i] = &model.Ticket{
				ScreeningID:  sc.ID,
				CustomerID:   customerID,
				SeatNumber:   seat,
				PurchaseTime: now,
			}
		}
		if err := tx.InsertTickets(ctx, batch); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return &SeatConflictError{Seats: seats}
			}
			return err
		}
		available = free(capacity, len(active)+len(batch))
		if err := tx.SetAvailableSeats(ctx, sc.ID, available); err != nil {
			return err
		}
		sold = make([]model.Ticket, len(batch))
		for i, t := range batch {
			sold[i] = *t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.TicketPurchased, available, sold...)
	return sold, nil
}

// CancelTicket marks an active ticket cancelled and frees its seat.  It
// fails once the screening has started.
func (s *InventoryService) CancelTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	var (
		ticket    *model.Ticket
		available int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		t, err := tx.LockTicket(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		if t.Cancelled {
			return ErrAlreadyCancelled
		}
		sc, err := tx.LockScreening(ctx, t.ScreeningID)
		if err != nil {
			return notFound(err, "screening", t.ScreeningID)
		}
		if s.now().After(sc.StartTime) {
			return ErrScreeningStarted
		}
		if err := tx.CancelTicket(ctx, t.ID); err != nil {
			return err
		}
		if available, err = recount(ctx, tx, sc); err != nil {
			return err
		}
		t.Cancelled = true
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.TicketCancelled, available, *ticket)
	return ticket, nil
}

// UpdateTicket moves an active ticket to another seat of its screening.
func (s *InventoryService) UpdateTicket(ctx context.Context, id uint64, seat int) (*model.Ticket, error) {
	if seat < 1 {
		return nil, ErrInvalidSeat
	}
	var (
		ticket    *model.Ticket
		available int
		moved     bool
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		t, err := tx.LockTicket(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		if t.Cancelled {
			return ErrAlreadyCancelled
		}
		sc, err := tx.LockScreening(ctx, t.ScreeningID)
		if err != nil {
			return notFound(err, "screening", t.ScreeningID)
		}
		if capacity := sc.Capacity(); seat > capacity {
			return fmt.Errorf("%w: seat %d, capacity %d", ErrSeatOutOfRange, seat, capacity)
		}
		ticket = t
		if seat == t.SeatNumber {
			available = sc.AvailableSeats
			return nil
		}
		active, err := tx.ActiveSeats(ctx, sc.ID)
		if err != nil {
			return err
		}
		if contains(active, seat) {
			return fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
		}
		if err := tx.SetTicketSeat(ctx, t.ID, seat); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: seat %d", ErrSeatTaken, seat)
			}
			return err
		}
		t.SeatNumber = seat
		moved = true
		available, err = recount(ctx, tx, sc)
		return err
	})
	if err != nil {
		return nil, err
	}
	if moved {
		s.publish(ctx, queue.TicketUpdated, available, *ticket)
	}
	return ticket, nil
}

// DeleteTicket removes a ticket row in any state.  Available seats are
// recounted afterwards, so deleting a cancelled ticket frees nothing.
func (s *InventoryService) DeleteTicket(ctx context.Context, id uint64) error {
	var (
		ticket    *model.Ticket
		available int
	)
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		t, err := tx.LockTicket(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		sc, err := tx.LockScreening(ctx, t.ScreeningID)
		if err != nil {
			return notFound(err, "screening", t.ScreeningID)
		}
		if err := tx.DeleteTicket(ctx, t.ID); err != nil {
			return notFound(err, "ticket", id)
		}
		ticket = t
		available, err = recount(ctx, tx, sc)
		return err
	})
	if err != nil {
		return err
	}
	s.publish(ctx, queue.TicketDeleted, available, *ticket)
	return nil
}

// Reconcile resets the screening's available seats to capacity minus its
// active tickets and returns the screening.
func (s *InventoryService) Reconcile(ctx context.Context, screeningID uint64) (*model.Screening, error) {
	var out *model.Screening
	err := s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		sc, err := tx.LockScreening(ctx, screeningID)
		if err != nil {
			return notFound(err, "screening", screeningID)
		}
		if _, err := recount(ctx, tx, sc); err != nil {
			return err
		}
		out = sc
		return nil
	})
	return out, err
}

// CreateScreening inserts a screening with every seat of its hall free.
func (s *InventoryService) CreateScreening(ctx context.Context, sc *model.Screening) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		movie, err := tx.GetMovie(ctx, sc.MovieID)
		if err != nil {
			return notFound(err, "movie", sc.MovieID)
		}
		hall, err := tx.LockHall(ctx, sc.HallID)
		if err != nil {
			return notFound(err, "hall", sc.HallID)
		}
		sc.AvailableSeats = hall.Capacity
		if err := tx.InsertScreening(ctx, sc); err != nil {
			return err
		}
		sc.Movie, sc.Hall = movie, hall
		return nil
	})
}

// fits reports whether the active seats still fit a hall of capacity.
func fits(active []int, capacity int) bool {
	if len(active) > capacity {
		return false
	}
	for _, seat := range active {
		if seat > capacity {
			return false
		}
	}
	return true
}

// UpdateScreening overwrites movie, hall, start time and price.  Moving to
// a hall too small for the tickets already sold fails with
// ErrHallTooSmall; otherwise available seats follow the new hall.
func (s *InventoryService) UpdateScreening(ctx context.Context, sc *model.Screening) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		cur, err := tx.LockScreening(ctx, sc.ID)
		if err != nil {
			return notFound(err, "screening", sc.ID)
		}
		movie, err := tx.GetMovie(ctx, sc.MovieID)
		if err != nil {
			return notFound(err, "movie", sc.MovieID)
		}
		hall := cur.Hall
		if sc.HallID != cur.HallID {
			if hall, err = tx.LockHall(ctx, sc.HallID); err != nil {
				return notFound(err, "hall", sc.HallID)
			}
		}
		active, err := tx.ActiveSeats(ctx, sc.ID)
		if err != nil {
			return err
		}
		if !fits(active, hall.Capacity) {
			return fmt.Errorf("%w: hall %d holds %d seats", ErrHallTooSmall, hall.ID, hall.Capacity)
		}
		sc.AvailableSeats = free(hall.Capacity, len(active))
		if err := tx.UpdateScreening(ctx, sc); err != nil {
			return err
		}
		sc.Movie, sc.Hall = movie, hall
		return nil
	})
}

// UpdateHall renames a hall and changes its capacity.  A capacity below
// the tickets sold for any of its screenings fails with ErrHallTooSmall;
// otherwise every screening of the hall is recounted.
func (s *InventoryService) UpdateHall(ctx context.Context, h *model.Hall) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx repository.InventoryTx) error {
		if _, err := tx.LockHall(ctx, h.ID); err != nil {
			return notFound(err, "hall", h.ID)
		}
		ids, err := tx.ScreeningIDsByHall(ctx, h.ID)
		if err != nil {
			return err
		}
		screenings := make([]*model.Screening, 0, len(ids))
		for _, id := range ids {
			sc, err := tx.LockScreening(ctx, id)
			if err != nil {
				return err
			}
			active, err := tx.ActiveSeats(ctx, id)
			if err != nil {
				return err
			}
			if !fits(active, h.Capacity) {
				return fmt.Errorf("%w: screening %d", ErrHallTooSmall, id)
			}
			screenings = append(screenings, sc)
		}
		if err := tx.UpdateHall(ctx, h); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: hall name %q", ErrDuplicate, h.Name)
			}
			return err
		}
		for _, sc := range screenings {
			sc.Hall = h
			if _, err := recount(ctx, tx, sc); err != nil {
				return err
			}
		}
		return nil
	})
}
