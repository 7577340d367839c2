// Package repository declares the persistence contracts used by the
// services.  The MySQL implementations live in repository/mysql.
package repository

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.UserAccount) error
	GetByUsername(ctx context.Context, username string) (*model.UserAccount, error)
	GetByID(ctx context.Context, id uint64) (*model.UserAccount, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s *model.UserSession) error
	FindByHash(ctx context.Context, hash string) (*model.UserSession, error)
	FindActiveByHash(ctx context.Context, hash string) (*model.UserSession, error)
	FindAllActiveForUser(ctx context.Context, userID uint64) ([]model.UserSession, error)
	CountActiveForUser(ctx context.Context, userID uint64) (int64, error)
	// Transition reports whether the session was in status from and is
	// now in status to.
	Transition(ctx context.Context, id uint64, from, to model.SessionStatus) (bool, error)
	RevokeAllActiveForUser(ctx context.Context, userID uint64) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	// Rotate marks oldID REFRESHED and inserts next atomically.  It
	// returns ErrConflict when oldID is no longer ACTIVE.
	Rotate(ctx context.Context, oldID uint64, next *model.UserSession) error
}

type MovieRepository interface {
	Create(ctx context.Context, m *model.Movie) error
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
	// SearchByTitle matches a case-insensitive substring of the title.
	SearchByTitle(ctx context.Context, title string) ([]model.Movie, error)
	ListByGenre(ctx context.Context, genre string) ([]model.Movie, error)
	Update(ctx context.Context, m *model.Movie) error
	Delete(ctx context.Context, id uint64) error
}

// HallRepository has no Update: capacity changes are checked against sold
// seats and go through InventoryTx.
type HallRepository interface {
	Create(ctx context.Context, h *model.Hall) error
	GetByID(ctx context.Context, id uint64) (*model.Hall, error)
	List(ctx context.Context) ([]model.Hall, error)
	Delete(ctx context.Context, id uint64) error
}

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id uint64) (*model.Customer, error)
	List(ctx context.Context) ([]model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id uint64) error
}

// ScreeningRepository serves reads.  Reads return screenings with Movie
// and Hall populated.
type ScreeningRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Screening, error)
	List(ctx context.Context) ([]model.Screening, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]model.Screening, error)
	ListByMovie(ctx context.Context, movieID uint64) ([]model.Screening, error)
	ListByHall(ctx context.Context, hallID uint64) ([]model.Screening, error)
	Delete(ctx context.Context, id uint64) error
}

type TicketRepository interface {
	List(ctx context.Context) ([]model.Ticket, error)
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	ListByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error)
	ListActiveByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error)
	ListByCustomer(ctx context.Context, customerID uint64) ([]model.Ticket, error)
}

// InventoryRepository runs seat-inventory writes in one transaction.  fn
// sees a consistent view of the rows it locks; the transaction commits
// when fn returns nil and rolls back otherwise.
type InventoryRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx InventoryTx) error) error
}

// InventoryTx is the set of reads and writes available inside an
// inventory transaction.  Lock* methods hold the row until the
// transaction ends; two transactions locking the same screening run one
// after the other.
type InventoryTx interface {
	// LockScreening returns the screening with Hall populated.
	LockScreening(ctx context.Context, id uint64) (*model.Screening, error)
	LockHall(ctx context.Context, id uint64) (*model.Hall, error)
	LockTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	GetMovie(ctx context.Context, id uint64) (*model.Movie, error)
	GetCustomer(ctx context.Context, id uint64) (*model.Customer, error)

	// ActiveSeats returns the seat numbers of the screening's
	// non-cancelled tickets in ascending order.
	ActiveSeats(ctx context.Context, screeningID uint64) ([]int, error)
	// ScreeningIDsByHall returns the ids of every screening in the hall.
	ScreeningIDsByHall(ctx context.Context, hallID uint64) ([]uint64, error)

	// InsertTickets inserts every ticket and sets their IDs.  A seat held
	// by another active ticket yields ErrDuplicate.
	InsertTickets(ctx context.Context, tickets []*model.Ticket) error
	CancelTicket(ctx context.Context, id uint64) error
	SetTicketSeat(ctx context.Context, id uint64, seat int) error
	DeleteTicket(ctx context.Context, id uint64) error

	InsertScreening(ctx context.Context, s *model.Screening) error
	UpdateScreening(ctx context.Context, s *model.Screening) error
	SetAvailableSeats(ctx context.Context, screeningID uint64, n int) error
	UpdateHall(ctx context.Context, h *model.Hall) error
}

// Repositories bundles every store the services need.
type Repositories struct {
	User      UserRepository
	Session   SessionRepository
	Movie     MovieRepository
	Hall      HallRepository
	Customer  CustomerRepository
	Screening ScreeningRepository
	Ticket    TicketRepository
	Inventory InventoryRepository
}
