package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// TicketRepo serves ticket reads and runs inventory transactions.
type TicketRepo struct{ db *sql.DB }

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = "id, screening_id, customer_id, seat_number, purchase_time, is_cancelled"

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	if err := row.Scan(&t.ID, &t.ScreeningID, &t.CustomerID, &t.SeatNumber, &t.PurchaseTime, &t.Cancelled); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TicketRepo) query(ctx context.Context, where string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ticketColumns+" FROM tickets "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TicketRepo) List(ctx context.Context) ([]model.Ticket, error) {
	return r.query(ctx, "ORDER BY id")
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id))
	return t, translate(err)
}

func (r *TicketRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.query(ctx, "WHERE screening_id = ? ORDER BY seat_number, id", screeningID)
}

func (r *TicketRepo) ListActiveByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.query(ctx, "WHERE screening_id = ? AND is_cancelled = FALSE ORDER BY seat_number", screeningID)
}

func (r *TicketRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]model.Ticket, error) {
	return r.query(ctx, "WHERE customer_id = ? ORDER BY purchase_time, id", customerID)
}

// InTx runs fn in a READ COMMITTED transaction.  Serialisation per
// screening comes from the row locks taken by LockScreening; READ
// COMMITTED lets reads after the lock see rows committed by the previous
// holder.
func (r *TicketRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.InventoryTx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return database.WithTx(ctx, r.db, opts, func(tx *sql.Tx) error {
		return fn(ctx, &inventoryTx{tx: tx})
	})
}
