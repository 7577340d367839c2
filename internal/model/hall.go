package model

// Hall represents a screening hall.  Capacity is the number of numbered
// seats (1..Capacity) that can be sold for any screening in the hall.
type Hall struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,gt=0"`
}
