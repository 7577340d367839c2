package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Fixture seeds catalog rows into in-memory repositories.
type Fixture struct {
	Repos *repository.Repositories
	DB    *DB
}

// NewFixture returns a fixture over fresh in-memory repositories.
func NewFixture() *Fixture {
	repos, db := NewRepositories()
	return &Fixture{Repos: repos, DB: db}
}

func suffix() string { return uuid.New().String()[:8] }

// Movie creates a movie with default attributes.
func (f *Fixture) Movie(t *testing.T) *model.Movie {
	t.Helper()
	m := &model.Movie{
		Title:           "Movie " + suffix(),
		Description:     "A test movie",
		DurationMinutes: 120,
		Genre:           "Drama",
		Director:        "Test Director",
		Year:            2024,
	}
	if err := f.Repos.Movie.Create(context.Background(), m); err != nil {
		t.Fatalf("failed to create movie: %v", err)
	}
	return m
}

// Hall creates a hall with the given capacity.
func (f *Fixture) Hall(t *testing.T, capacity int) *model.Hall {
	t.Helper()
	h := &model.Hall{Name: "Hall " + suffix(), Capacity: capacity}
	if err := f.Repos.Hall.Create(context.Background(), h); err != nil {
		t.Fatalf("failed to create hall: %v", err)
	}
	return h
}

// Customer creates a customer with a unique email.
func (f *Fixture) Customer(t *testing.T) *model.Customer {
	t.Helper()
	s := suffix()
	c := &model.Customer{
		FirstName: "Test",
		LastName:  "Customer",
		Email:     fmt.Sprintf("customer_%s@example.com", s),
		Phone:     "+10000000000",
	}
	if err := f.Repos.Customer.Create(context.Background(), c); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	return c
}

// Screening creates a screening of a fresh movie in a fresh hall of the
// given capacity, starting at start, with every seat free.
func (f *Fixture) Screening(t *testing.T, capacity int, start time.Time) *model.Screening {
	t.Helper()
	return f.ScreeningIn(t, f.Movie(t), f.Hall(t, capacity), start)
}

// ScreeningIn creates a screening of movie in hall starting at start.
func (f *Fixture) ScreeningIn(t *testing.T, movie *model.Movie, hall *model.Hall, start time.Time) *model.Screening {
	t.Helper()
	s := &model.Screening{
		MovieID:        movie.ID,
		HallID:         hall.ID,
		StartTime:      start,
		Price:          9.5,
		AvailableSeats: hall.Capacity,
	}
	err := f.Repos.Inventory.InTx(context.Background(), func(ctx context.Context, tx repository.InventoryTx) error {
		return tx.InsertScreening(ctx, s)
	})
	if err != nil {
		t.Fatalf("failed to create screening: %v", err)
	}
	s.Movie, s.Hall = movie, hall
	return s
}
