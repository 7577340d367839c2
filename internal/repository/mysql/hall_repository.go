package mysql

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// HallRepo provides methods to create and retrieve halls.  Capacity
// changes go through the ticket service, which checks them against sold
// seats; this repo only exposes the plain reads and writes.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo { return &HallRepo{db: db} }

// Create inserts a new hall and sets h.ID.  Hall names are unique.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx, "INSERT INTO halls (name, capacity) VALUES (?, ?)", h.Name, h.Capacity)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// GetByID retrieves a hall by its ID.  It returns ErrNotFound when no row
// is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	return getHall(ctx, r.db, "SELECT id, name, capacity FROM halls WHERE id = ?", id)
}

func getHall(ctx context.Context, db DBTX, q string, id uint64) (*model.Hall, error) {
	var h model.Hall
	if err := db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.Capacity); err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

// List returns all halls ordered by id.
func (r *HallRepo) List(ctx context.Context) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, capacity FROM halls ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Hall, 0)
	for rows.Next() {
		var h model.Hall
		if err := rows.Scan(&h.ID, &h.Name, &h.Capacity); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Delete removes a hall.  Halls that still have screenings yield
// ErrConflict.
func (r *HallRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM halls WHERE id = ?", id)
}
