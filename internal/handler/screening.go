package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type screeningReq struct {
	MovieID   uint64    `json:"movieId" validate:"required"`
	HallID    uint64    `json:"hallId" validate:"required"`
	StartTime time.Time `json:"startTime" validate:"required"`
	Price     float64   `json:"price" validate:"required,gt=0"`
}

func (r screeningReq) model(id uint64) *model.Screening {
	return &model.Screening{
		ID:        id,
		MovieID:   r.MovieID,
		HallID:    r.HallID,
		StartTime: r.StartTime.UTC(),
		Price:     r.Price,
	}
}

// CreateScreening: POST /screenings.  Every seat of the hall starts free.
func (h *CatalogHandler) CreateScreening(c echo.Context) error {
	var req screeningReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	sc := req.model(0)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Inventory.CreateScreening(ctx, sc); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sc)
}

// ListScreenings: GET /screenings.
func (h *CatalogHandler) ListScreenings(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Screenings.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// UpcomingScreenings: GET /screenings/upcoming.  Screenings starting
// after now, soonest first.
func (h *CatalogHandler) UpcomingScreenings(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Screenings.ListUpcoming(ctx, time.Now().UTC())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ScreeningsByMovie: GET /screenings/movie/:id.
func (h *CatalogHandler) ScreeningsByMovie(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Screenings.ListByMovie(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ScreeningsByHall: GET /screenings/hall/:id.
func (h *CatalogHandler) ScreeningsByHall(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Screenings.ListByHall(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetScreening: GET /screenings/:id.
func (h *CatalogHandler) GetScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	sc, err := h.Screenings.GetByID(ctx, id)
	if err != nil {
		return writeError(c, missing(err, "screening", id))
	}
	return c.JSON(http.StatusOK, sc)
}

// UpdateScreening: PUT /screenings/:id.
func (h *CatalogHandler) UpdateScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req screeningReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	sc := req.model(id)
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Inventory.UpdateScreening(ctx, sc); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sc)
}

// ReconcileScreening: POST /screenings/:id/reconcile.
func (h *CatalogHandler) ReconcileScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	sc, err := h.Inventory.Reconcile(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sc)
}

// DeleteScreening: DELETE /screenings/:id.  Screenings with tickets are
// refused.
func (h *CatalogHandler) DeleteScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Screenings.Delete(ctx, id); err != nil {
		return writeError(c, missing(err, "screening", id))
	}
	return c.NoContent(http.StatusNoContent)
}
