package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// CatalogHandler serves movies, halls, customers and screenings.  Writes
// that touch seat counts (hall capacity, screening create and update) go
// through the inventory service.
type CatalogHandler struct {
	Movies     repository.MovieRepository
	Halls      repository.HallRepository
	Customers  repository.CustomerRepository
	Screenings repository.ScreeningRepository
	Inventory  *service.InventoryService
}

// NewCatalogHandler panics if a dependency is nil.
func NewCatalogHandler(repos *repository.Repositories, inventory *service.InventoryService) *CatalogHandler {
	if repos == nil || inventory == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{
		Movies:     repos.Movie,
		Halls:      repos.Hall,
		Customers:  repos.Customer,
		Screenings: repos.Screening,
		Inventory:  inventory,
	}
}

// ----- movies -----

// CreateMovie: POST /movies.
func (h *CatalogHandler) CreateMovie(c echo.Context) error {
	var m model.Movie
	if err := bind(c, &m); err != nil {
		return writeError(c, err)
	}
	m.ID = 0
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Movies.Create(ctx, &m); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// ListMovies: GET /movies.
func (h *CatalogHandler) ListMovies(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Movies.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// SearchMovies: GET /movies/search?title=.
func (h *CatalogHandler) SearchMovies(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title query parameter is required"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Movies.SearchByTitle(ctx, title)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// MoviesByGenre: GET /movies/genre/:genre.
func (h *CatalogHandler) MoviesByGenre(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Movies.ListByGenre(ctx, c.Param("genre"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetMovie: GET /movies/:id.
func (h *CatalogHandler) GetMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return writeError(c, missing(err, "movie", id))
	}
	return c.JSON(http.StatusOK, m)
}

// UpdateMovie: PUT /movies/:id.  Every field is overwritten.
func (h *CatalogHandler) UpdateMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var m model.Movie
	if err := bind(c, &m); err != nil {
		return writeError(c, err)
	}
	m.ID = id
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Movies.Update(ctx, &m); err != nil {
		return writeError(c, missing(err, "movie", id))
	}
	return c.JSON(http.StatusOK, m)
}

// DeleteMovie: DELETE /movies/:id.  Movies with screenings are refused.
func (h *CatalogHandler) DeleteMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Movies.Delete(ctx, id); err != nil {
		return writeError(c, missing(err, "movie", id))
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- halls -----

// CreateHall: POST /halls.
func (h *CatalogHandler) CreateHall(c echo.Context) error {
	var hall model.Hall
	if err := bind(c, &hall); err != nil {
		return writeError(c, err)
	}
	hall.ID = 0
	hall.Name = strings.TrimSpace(hall.Name)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Halls.Create(ctx, &hall); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, hall)
}

// ListHalls: GET /halls.
func (h *CatalogHandler) ListHalls(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Halls.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetHall: GET /halls/:id.
func (h *CatalogHandler) GetHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		return writeError(c, missing(err, "hall", id))
	}
	return c.JSON(http.StatusOK, hall)
}

// UpdateHall: PUT /halls/:id.  Shrinking below the seats already sold
// for any screening of the hall is refused.
func (h *CatalogHandler) UpdateHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var hall model.Hall
	if err := bind(c, &hall); err != nil {
		return writeError(c, err)
	}
	hall.ID = id
	hall.Name = strings.TrimSpace(hall.Name)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Inventory.UpdateHall(ctx, &hall); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, hall)
}

// DeleteHall: DELETE /halls/:id.  Halls with screenings are refused.
func (h *CatalogHandler) DeleteHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Halls.Delete(ctx, id); err != nil {
		return writeError(c, missing(err, "hall", id))
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- customers -----

func normalizeCustomer(cu *model.Customer) {
	cu.FirstName = strings.TrimSpace(cu.FirstName)
	cu.LastName = strings.TrimSpace(cu.LastName)
	cu.Email = strings.ToLower(strings.TrimSpace(cu.Email))
	cu.Phone = strings.TrimSpace(cu.Phone)
}

// CreateCustomer: POST /customers.  Emails are unique.
func (h *CatalogHandler) CreateCustomer(c echo.Context) error {
	var cu model.Customer
	if err := bind(c, &cu); err != nil {
		return writeError(c, err)
	}
	cu.ID = 0
	normalizeCustomer(&cu)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Customers.Create(ctx, &cu); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cu)
}

// ListCustomers: GET /customers.
func (h *CatalogHandler) ListCustomers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Customers.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetCustomer: GET /customers/:id.
func (h *CatalogHandler) GetCustomer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	cu, err := h.Customers.GetByID(ctx, id)
	if err != nil {
		return writeError(c, missing(err, "customer", id))
	}
	return c.JSON(http.StatusOK, cu)
}

// UpdateCustomer: PUT /customers/:id.
func (h *CatalogHandler) UpdateCustomer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var cu model.Customer
	if err := bind(c, &cu); err != nil {
		return writeError(c, err)
	}
	cu.ID = id
	normalizeCustomer(&cu)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Customers.Update(ctx, &cu); err != nil {
		return writeError(c, missing(err, "customer", id))
	}
	return c.JSON(http.StatusOK, cu)
}

// DeleteCustomer: DELETE /customers/:id.  Customers with tickets are
// refused.
func (h *CatalogHandler) DeleteCustomer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Customers.Delete(ctx, id); err != nil {
		return writeError(c, missing(err, "customer", id))
	}
	return c.NoContent(http.StatusNoContent)
}
