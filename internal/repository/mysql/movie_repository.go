package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo provides CRUD access to the movies table.
type MovieRepo struct{ db *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = "id, title, description, duration_minutes, genre, director, movie_year"

func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var (
		m                           model.Movie
		description, genre, director sql.NullString
	)
	if err := row.Scan(&m.ID, &m.Title, &description, &m.DurationMinutes, &genre, &director, &m.Year); err != nil {
		return nil, err
	}
	m.Description, m.Genre, m.Director = description.String, genre.String, director.String
	return &m, nil
}

// Create inserts m and sets its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, description, duration_minutes, genre, director, movie_year)
		 VALUES (?,?,?,?,?,?)`,
		m.Title, m.Description, m.DurationMinutes, m.Genre, m.Director, m.Year)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound when no movie has the id.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := scanMovie(r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id=?", id))
	return m, translate(err)
}

// List returns all movies ordered by id.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.list(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY id")
}

// SearchByTitle returns movies whose title contains title, ignoring case.
func (r *MovieRepo) SearchByTitle(ctx context.Context, title string) ([]model.Movie, error) {
	return r.list(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE LOWER(title) LIKE CONCAT('%', LOWER(?), '%') ORDER BY id",
		escapeLike(title))
}

// ListByGenre returns movies of exactly the given genre.
func (r *MovieRepo) ListByGenre(ctx context.Context, genre string) ([]model.Movie, error) {
	return r.list(ctx, "SELECT "+movieColumns+" FROM movies WHERE genre=? ORDER BY id", genre)
}

func (r *MovieRepo) list(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// escapeLike quotes the LIKE wildcards in s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Update overwrites every column of the movie with m.ID.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title=?, description=?, duration_minutes=?, genre=?, director=?, movie_year=?
		 WHERE id=?`,
		m.Title, m.Description, m.DurationMinutes, m.Genre, m.Director, m.Year, m.ID)
	if err != nil {
		return translate(err)
	}
	return requireRow(ctx, r.db, res, "SELECT 1 FROM movies WHERE id=?", m.ID)
}

// Delete removes the movie.  Movies with screenings yield ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "DELETE FROM movies WHERE id=?", id)
}
