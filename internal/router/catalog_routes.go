package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterCatalog mounts movies, halls, customers and screenings.  Reads
// are open to USER and ADMIN; writes need ADMIN.  Movie, hall and
// customer reads are cached in Redis per resource group.  Screenings are
// not cached because their seat counter moves with every sale.
func RegisterCatalog(e *echo.Echo, d Deps) {
	h := d.Catalog

	// ---- Movies ----
	m := protected(e, "/movies", d, middleware.NewRedisCache(d.Cache, d.Redis, "movies"))
	m.GET("", h.ListMovies)
	m.GET("/search", h.SearchMovies)
	m.GET("/genre/:genre", h.MoviesByGenre)
	m.GET("/:id", h.GetMovie)
	m.POST("", h.CreateMovie, adminOnly)
	m.PUT("/:id", h.UpdateMovie, adminOnly)
	m.DELETE("/:id", h.DeleteMovie, adminOnly)

	// ---- Halls ----
	ha := protected(e, "/halls", d, middleware.NewRedisCache(d.Cache, d.Redis, "halls"))
	ha.GET("", h.ListHalls)
	ha.GET("/:id", h.GetHall)
	ha.POST("", h.CreateHall, adminOnly)
	ha.PUT("/:id", h.UpdateHall, adminOnly)
	ha.DELETE("/:id", h.DeleteHall, adminOnly)

	// ---- Customers ----
	cu := protected(e, "/customers", d, middleware.NewRedisCache(d.Cache, d.Redis, "customers"))
	cu.GET("", h.ListCustomers)
	cu.GET("/:id", h.GetCustomer)
	cu.POST("", h.CreateCustomer, adminOnly)
	cu.PUT("/:id", h.UpdateCustomer, adminOnly)
	cu.DELETE("/:id", h.DeleteCustomer, adminOnly)

	// ---- Screenings ----
	s := protected(e, "/screenings", d)
	s.GET("", h.ListScreenings)
	s.GET("/upcoming", h.UpcomingScreenings)
	s.GET("/movie/:id", h.ScreeningsByMovie)
	s.GET("/hall/:id", h.ScreeningsByHall)
	s.GET("/:id", h.GetScreening)
	s.POST("", h.CreateScreening, adminOnly)
	s.PUT("/:id", h.UpdateScreening, adminOnly)
	s.POST("/:id/reconcile", h.ReconcileScreening, adminOnly)
	s.DELETE("/:id", h.DeleteScreening, adminOnly)
}
