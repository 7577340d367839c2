package model

// Movie represents a row in the `movies` table.
type Movie struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description" validate:"required,max=1000"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,gt=0"`
	Genre           string `json:"genre" validate:"required"`
	Director        string `json:"director" validate:"required"`
	Year            int    `json:"year" validate:"required"`
}
