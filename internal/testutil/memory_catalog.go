package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

func sortedValues[V any](m map[uint64]V, less func(a, b V) bool) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// ----- movies -----

type MovieRepo struct{ db *DB }

func (r *MovieRepo) Create(_ context.Context, m *model.Movie) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = r.db.id()
	r.db.movies[m.ID] = *m
	return nil
}

func (r *MovieRepo) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.db.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r *MovieRepo) List(_ context.Context) ([]model.Movie, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return sortedValues(r.db.movies, func(a, b model.Movie) bool { return a.ID < b.ID }), nil
}

func (r *MovieRepo) filter(match func(model.Movie) bool) []model.Movie {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Movie, 0)
	for _, m := range sortedValues(r.db.movies, func(a, b model.Movie) bool { return a.ID < b.ID }) {
		if match(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *MovieRepo) SearchByTitle(_ context.Context, title string) ([]model.Movie, error) {
	needle := strings.ToLower(title)
	return r.filter(func(m model.Movie) bool { return strings.Contains(strings.ToLower(m.Title), needle) }), nil
}

func (r *MovieRepo) ListByGenre(_ context.Context, genre string) ([]model.Movie, error) {
	return r.filter(func(m model.Movie) bool { return m.Genre == genre }), nil
}

func (r *MovieRepo) Update(_ context.Context, m *model.Movie) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.movies[m.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.movies[m.ID] = *m
	return nil
}

func (r *MovieRepo) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.movies[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.db.screenings {
		if s.MovieID == id {
			return repository.ErrConflict
		}
	}
	delete(r.db.movies, id)
	return nil
}

// ----- halls -----

type HallRepo struct{ db *DB }

func (t *tables) hallNameTaken(name string, except uint64) bool {
	for _, h := range t.halls {
		if h.Name == name && h.ID != except {
			return true
		}
	}
	return false
}

func (r *HallRepo) Create(_ context.Context, h *model.Hall) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.hallNameTaken(h.Name, 0) {
		return repository.ErrDuplicate
	}
	h.ID = r.db.id()
	r.db.halls[h.ID] = *h
	return nil
}

func (r *HallRepo) GetByID(_ context.Context, id uint64) (*model.Hall, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	h, ok := r.db.halls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (r *HallRepo) List(_ context.Context) ([]model.Hall, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return sortedValues(r.db.halls, func(a, b model.Hall) bool { return a.ID < b.ID }), nil
}

func (r *HallRepo) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.halls[id]; !ok {
		return repository.ErrNotFound
	}
	for _, s := range r.db.screenings {
		if s.HallID == id {
			return repository.ErrConflict
		}
	}
	delete(r.db.halls, id)
	return nil
}

// ----- customers -----

type CustomerRepo struct{ db *DB }

func (t *tables) emailTaken(email string, except uint64) bool {
	for _, c := range t.customers {
		if c.Email == email && c.ID != except {
			return true
		}
	}
	return false
}

func (r *CustomerRepo) Create(_ context.Context, c *model.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.emailTaken(c.Email, 0) {
		return repository.ErrDuplicate
	}
	c.ID = r.db.id()
	r.db.customers[c.ID] = *c
	return nil
}

func (r *CustomerRepo) GetByID(_ context.Context, id uint64) (*model.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CustomerRepo) List(_ context.Context) ([]model.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return sortedValues(r.db.customers, func(a, b model.Customer) bool { return a.ID < b.ID }), nil
}

func (r *CustomerRepo) Update(_ context.Context, c *model.Customer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.customers[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.db.emailTaken(c.Email, c.ID) {
		return repository.ErrDuplicate
	}
	r.db.customers[c.ID] = *c
	return nil
}

func (r *CustomerRepo) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.customers[id]; !ok {
		return repository.ErrNotFound
	}
	for _, t := range r.db.tickets {
		if t.CustomerID == id {
			return repository.ErrConflict
		}
	}
	delete(r.db.customers, id)
	return nil
}

// ----- screenings -----

type ScreeningRepo struct{ db *DB }

// joined returns s with Movie and Hall populated.
func (t *tables) joined(s model.Screening) model.Screening {
	if m, ok := t.movies[s.MovieID]; ok {
		s.Movie = &m
	}
	if h, ok := t.halls[s.HallID]; ok {
		s.Hall = &h
	}
	return s
}

func (r *ScreeningRepo) list(match func(model.Screening) bool) []model.Screening {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Screening, 0)
	for _, s := range r.db.screenings {
		if match(s) {
			out = append(out, r.db.joined(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *ScreeningRepo) GetByID(_ context.Context, id uint64) (*model.Screening, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.screenings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s = r.db.joined(s)
	return &s, nil
}

func (r *ScreeningRepo) List(_ context.Context) ([]model.Screening, error) {
	return r.list(func(model.Screening) bool { return true }), nil
}

func (r *ScreeningRepo) ListUpcoming(_ context.Context, now time.Time) ([]model.Screening, error) {
	return r.list(func(s model.Screening) bool { return s.StartTime.After(now) }), nil
}

func (r *ScreeningRepo) ListByMovie(_ context.Context, movieID uint64) ([]model.Screening, error) {
	return r.list(func(s model.Screening) bool { return s.MovieID == movieID }), nil
}

func (r *ScreeningRepo) ListByHall(_ context.Context, hallID uint64) ([]model.Screening, error) {
	return r.list(func(s model.Screening) bool { return s.HallID == hallID }), nil
}

func (r *ScreeningRepo) Delete(_ context.Context, id uint64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.screenings[id]; !ok {
		return repository.ErrNotFound
	}
	for _, t := range r.db.tickets {
		if t.ScreeningID == id {
			return repository.ErrConflict
		}
	}
	delete(r.db.screenings, id)
	return nil
}

// AvailableSeats returns the stored counter of a screening.  Test helper
// only.
func (db *DB) AvailableSeats(screeningID uint64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.screenings[screeningID].AvailableSeats
}

// ----- tickets -----

// TicketRepo serves ticket reads and inventory transactions.
type TicketRepo struct{ db *DB }

func (r *TicketRepo) list(match func(model.Ticket) bool, less func(a, b model.Ticket) bool) []model.Ticket {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]model.Ticket, 0)
	for _, t := range r.db.tickets {
		if match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b model.Ticket) bool { return a.ID < b.ID }

func bySeat(a, b model.Ticket) bool {
	if a.SeatNumber != b.SeatNumber {
		return a.SeatNumber < b.SeatNumber
	}
	return a.ID < b.ID
}

func (r *TicketRepo) List(_ context.Context) ([]model.Ticket, error) {
	return r.list(func(model.Ticket) bool { return true }, byID), nil
}

func (r *TicketRepo) GetByID(_ context.Context, id uint64) (*model.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *TicketRepo) ListByScreening(_ context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.list(func(t model.Ticket) bool { return t.ScreeningID == screeningID }, bySeat), nil
}

func (r *TicketRepo) ListActiveByScreening(_ context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.list(func(t model.Ticket) bool { return t.ScreeningID == screeningID && !t.Cancelled }, bySeat), nil
}

func (r *TicketRepo) ListByCustomer(_ context.Context, customerID uint64) ([]model.Ticket, error) {
	return r.list(func(t model.Ticket) bool { return t.CustomerID == customerID }, byID), nil
}

// InTx holds the database lock while fn runs and restores the snapshot
// taken before fn when it fails.
func (r *TicketRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.InventoryTx) error) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	before := r.db.snapshot()
	if err := fn(ctx, &memTx{t: &r.db.tables}); err != nil {
		r.db.tables = before
		return err
	}
	return nil
}
