package model

// Customer represents a row in the `customers` table.  Tickets are issued
// to customers, not to user accounts.
type Customer struct {
	ID        uint64 `json:"id"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}
