package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// TicketHandler serves ticket sales and reads.  Every write goes through
// the inventory service.
type TicketHandler struct {
	Tickets   repository.TicketRepository
	Inventory *service.InventoryService
}

func NewTicketHandler(tickets repository.TicketRepository, inventory *service.InventoryService) *TicketHandler {
	return &TicketHandler{Tickets: tickets, Inventory: inventory}
}

// ----- DTOs -----

type ticketReq struct {
	ScreeningID uint64 `json:"screeningId" validate:"required"`
	CustomerID  uint64 `json:"customerId" validate:"required"`
	SeatNumber  int    `json:"seatNumber"`
}

type bulkReq struct {
	ScreeningID uint64 `json:"screeningId" validate:"required"`
	CustomerID  uint64 `json:"customerId" validate:"required"`
	SeatNumbers []int  `json:"seatNumbers"`
}

type seatReq struct {
	SeatNumber int `json:"seatNumber"`
}

// Create: POST /tickets.
func (h *TicketHandler) Create(c echo.Context) error {
	var req ticketReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, err := h.Inventory.CreateTicket(ctx, req.ScreeningID, req.CustomerID, req.SeatNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// Bulk: POST /tickets/bulk.  All seats are sold or none.
func (h *TicketHandler) Bulk(c echo.Context) error {
	var req bulkReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	sold, err := h.Inventory.BulkPurchase(ctx, req.ScreeningID, req.CustomerID, req.SeatNumbers)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sold)
}

// Update: PUT /tickets/:id.  Moves the ticket to another seat.
func (h *TicketHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req seatReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, err := h.Inventory.UpdateTicket(ctx, id, req.SeatNumber)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Cancel: POST /tickets/:id/cancel.
func (h *TicketHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, err := h.Inventory.CancelTicket(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Delete: DELETE /tickets/:id.
func (h *TicketHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Inventory.DeleteTicket(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List: GET /tickets.
func (h *TicketHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Tickets.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get: GET /tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	t, err := h.Tickets.GetByID(ctx, id)
	if err != nil {
		return writeError(c, missing(err, "ticket", id))
	}
	return c.JSON(http.StatusOK, t)
}

// ByScreening: GET /tickets/screening/:id, cancelled tickets included.
func (h *TicketHandler) ByScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Tickets.ListByScreening(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ActiveByScreening: GET /tickets/screening/:id/active.
func (h *TicketHandler) ActiveByScreening(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Tickets.ListActiveByScreening(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ByCustomer: GET /tickets/customer/:id.
func (h *TicketHandler) ByCustomer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()
	list, err := h.Tickets.ListByCustomer(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
