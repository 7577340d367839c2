package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ScreeningRepo serves screening reads joined with their movie and hall.
// Writes that touch available_seats live on the inventory transaction.
type ScreeningRepo struct{ db *sql.DB }

func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

const screeningSelect = `SELECT s.id, s.movie_id, s.hall_id, s.start_time, s.price, s.available_seats,
	m.id, m.title, m.description, m.duration_minutes, m.genre, m.director, m.movie_year,
	h.id, h.name, h.capacity
	FROM screenings s
	JOIN movies m ON m.id = s.movie_id
	JOIN halls h ON h.id = s.hall_id`

func scanScreening(row interface{ Scan(...any) error }) (*model.Screening, error) {
	var (
		s                            model.Screening
		m                            model.Movie
		h                            model.Hall
		description, genre, director sql.NullString
	)
	if err := row.Scan(&s.ID, &s.MovieID, &s.HallID, &s.StartTime, &s.Price, &s.AvailableSeats,
		&m.ID, &m.Title, &description, &m.DurationMinutes, &genre, &director, &m.Year,
		&h.ID, &h.Name, &h.Capacity); err != nil {
		return nil, err
	}
	m.Description, m.Genre, m.Director = description.String, genre.String, director.String
	s.Movie, s.Hall = &m, &h
	return &s, nil
}

func (r *ScreeningRepo) query(ctx context.Context, where string, args ...any) ([]model.Screening, error) {
	rows, err := r.db.QueryContext(ctx, screeningSelect+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Screening, 0)
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound when no screening has the id.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	s, err := scanScreening(r.db.QueryRowContext(ctx, screeningSelect+" WHERE s.id = ?", id))
	return s, translate(err)
}

func (r *ScreeningRepo) List(ctx context.Context) ([]model.Screening, error) {
	return r.query(ctx, "ORDER BY s.start_time, s.id")
}

// ListUpcoming returns screenings starting after now, soonest first.
func (r *ScreeningRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.Screening, error) {
	return r.query(ctx, "WHERE s.start_time > ? ORDER BY s.start_time, s.id", now.UTC())
}

func (r *ScreeningRepo) ListByMovie(ctx context.Context, movieID uint64) ([]model.Screening, error) {
	return r.query(ctx, "WHERE s.movie_id = ? ORDER BY s.start_time, s.id", movieID)
}

func (r *ScreeningRepo) ListByHall(ctx context.Context, hallID uint64) ([]model.Screening, error) {
	return r.query(ctx, "WHERE s.hall_id = ? ORDER BY s.start_time, s.id", hallID)
}

// Delete removes the screening.  Screenings with tickets yield ErrConflict.
func (r *ScreeningRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM screenings WHERE id = ?", id)
}
