package mysql

import (
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// NewRepositories wires every MySQL store onto one pool.
func NewRepositories(db *sql.DB) *repository.Repositories {
	tickets := NewTicketRepo(db)
	return &repository.Repositories{
		User:      NewUserRepo(db),
		Session:   NewSessionRepo(db),
		Movie:     NewMovieRepo(db),
		Hall:      NewHallRepo(db),
		Customer:  NewCustomerRepo(db),
		Screening: NewScreeningRepo(db),
		Ticket:    tickets,
		Inventory: tickets,
	}
}

var (
	_ repository.UserRepository      = (*UserRepo)(nil)
	_ repository.SessionRepository   = (*SessionRepo)(nil)
	_ repository.MovieRepository     = (*MovieRepo)(nil)
	_ repository.HallRepository      = (*HallRepo)(nil)
	_ repository.CustomerRepository  = (*CustomerRepo)(nil)
	_ repository.ScreeningRepository = (*ScreeningRepo)(nil)
	_ repository.TicketRepository    = (*TicketRepo)(nil)
	_ repository.InventoryRepository = (*TicketRepo)(nil)
	_ repository.InventoryTx         = (*inventoryTx)(nil)
)
