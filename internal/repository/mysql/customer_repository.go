package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CustomerRepo provides CRUD access to the customers table.
type CustomerRepo struct{ db *sql.DB }

func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = "id, first_name, last_name, email, phone"

func scanCustomer(row interface{ Scan(...any) error }) (*model.Customer, error) {
	var (
		c     model.Customer
		phone sql.NullString
	)
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &phone); err != nil {
		return nil, err
	}
	c.Phone = phone.String
	return &c, nil
}

// Create inserts c and sets its ID.  Emails are unique (ErrDuplicate).
func (r *CustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO customers (first_name, last_name, email, phone) VALUES (?,?,?,?)",
		c.FirstName, c.LastName, c.Email, nullString(c.Phone))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound when no customer has the id.
func (r *CustomerRepo) GetByID(ctx context.Context, id uint64) (*model.Customer, error) {
	return getCustomer(ctx, r.db, id)
}

func getCustomer(ctx context.Context, db DBTX, id uint64) (*model.Customer, error) {
	c, err := scanCustomer(db.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customers WHERE id=?", id))
	return c, translate(err)
}

// List returns all customers ordered by id.
func (r *CustomerRepo) List(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update overwrites the customer with c.ID.
func (r *CustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE customers SET first_name=?, last_name=?, email=?, phone=? WHERE id=?",
		c.FirstName, c.LastName, c.Email, nullString(c.Phone), c.ID)
	if err != nil {
		return translate(err)
	}
	return requireRow(ctx, r.db, res, "SELECT 1 FROM customers WHERE id=?", c.ID)
}

// Delete removes the customer.  Customers holding tickets yield ErrConflict.
func (r *CustomerRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM customers WHERE id=?", id)
}
