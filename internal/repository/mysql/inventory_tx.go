package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// inventoryTx implements repository.InventoryTx on a *sql.Tx.
type inventoryTx struct{ tx *sql.Tx }

func (t *inventoryTx) LockScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	var s model.Screening
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, movie_id, hall_id, start_time, price, available_seats
		 FROM screenings WHERE id = ? FOR UPDATE`, id).
		Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartTime, &s.Price, &s.AvailableSeats)
	if err != nil {
		return nil, translate(err)
	}
	// The hall row is read without a lock.  Capacity changes lock every
	// screening of the hall first, so they cannot interleave with us.
	h, err := getHall(ctx, t.tx, "SELECT id, name, capacity FROM halls WHERE id = ?", s.HallID)
	if err != nil {
		return nil, err
	}
	s.Hall = h
	return &s, nil
}

func (t *inventoryTx) LockHall(ctx context.Context, id uint64) (*model.Hall, error) {
	return getHall(ctx, t.tx, "SELECT id, name, capacity FROM halls WHERE id = ? FOR UPDATE", id)
}

func (t *inventoryTx) LockTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	tk, err := scanTicket(t.tx.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE id = ? FOR UPDATE", id))
	return tk, translate(err)
}

func (t *inventoryTx) GetMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := scanMovie(t.tx.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	return m, translate(err)
}

func (t *inventoryTx) GetCustomer(ctx context.Context, id uint64) (*model.Customer, error) {
	return getCustomer(ctx, t.tx, id)
}

func (t *inventoryTx) ActiveSeats(ctx context.Context, screeningID uint64) ([]int, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT seat_number FROM tickets WHERE screening_id = ? AND is_cancelled = FALSE ORDER BY seat_number",
		screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]int, 0)
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		seats = append(seats, n)
	}
	return seats, rows.Err()
}

func (t *inventoryTx) ScreeningIDsByHall(ctx context.Context, hallID uint64) ([]uint64, error) {
	rows, err := t.tx.QueryContext(ctx, "SELECT id FROM screenings WHERE hall_id = ? ORDER BY id", hallID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *inventoryTx) InsertTickets(ctx context.Context, tickets []*model.Ticket) error {
	stmt, err := t.tx.PrepareContext(ctx,
		`INSERT INTO tickets (screening_id, customer_id, seat_number, purchase_time, is_cancelled)
		 VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, tk := range tickets {
		res, err := stmt.ExecContext(ctx, tk.ScreeningID, tk.CustomerID, tk.SeatNumber, tk.PurchaseTime.UTC(), tk.Cancelled)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		tk.ID = uint64(id)
	}
	return nil
}

func (t *inventoryTx) CancelTicket(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, "UPDATE tickets SET is_cancelled = TRUE WHERE id = ?", id)
	return translate(err)
}

func (t *inventoryTx) SetTicketSeat(ctx context.Context, id uint64, seat int) error {
	_, err := t.tx.ExecContext(ctx, "UPDATE tickets SET seat_number = ? WHERE id = ?", seat, id)
	return translate(err)
}

func (t *inventoryTx) DeleteTicket(ctx context.Context, id uint64) error {
	return deleteByID(ctx, t.tx, "DELETE FROM tickets WHERE id = ?", id)
}

func (t *inventoryTx) InsertScreening(ctx context.Context, s *model.Screening) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO screenings (movie_id, hall_id, start_time, price, available_seats)
		 VALUES (?,?,?,?,?)`,
		s.MovieID, s.HallID, s.StartTime.UTC(), s.Price, s.AvailableSeats)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (t *inventoryTx) UpdateScreening(ctx context.Context, s *model.Screening) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE screenings SET movie_id = ?, hall_id = ?, start_time = ?, price = ?, available_seats = ?
		 WHERE id = ?`,
		s.MovieID, s.HallID, s.StartTime.UTC(), s.Price, s.AvailableSeats, s.ID)
	return translate(err)
}

func (t *inventoryTx) SetAvailableSeats(ctx context.Context, screeningID uint64, n int) error {
	_, err := t.tx.ExecContext(ctx, "UPDATE screenings SET available_seats = ? WHERE id = ?", n, screeningID)
	return translate(err)
}

func (t *inventoryTx) UpdateHall(ctx context.Context, h *model.Hall) error {
	_, err := t.tx.ExecContext(ctx, "UPDATE halls SET name = ?, capacity = ? WHERE id = ?", h.Name, h.Capacity, h.ID)
	return translate(err)
}
