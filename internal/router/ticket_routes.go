package router

import "github.com/labstack/echo/v4"

// RegisterTickets mounts /tickets.  Buying, moving and cancelling need
// USER or ADMIN; deleting needs ADMIN.
func RegisterTickets(e *echo.Echo, d Deps) {
	h := d.Tickets
	g := protected(e, "/tickets", d)

	g.POST("", h.Create)
	g.POST("/bulk", h.Bulk)
	g.PUT("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel)
	g.DELETE("/:id", h.Delete, adminOnly)

	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/screening/:id", h.ByScreening)
	g.GET("/screening/:id/active", h.ActiveByScreening)
	g.GET("/customer/:id", h.ByCustomer)
}
