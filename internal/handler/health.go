package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers GET /healthz with plain "ok" while the database responds.
// A nil db skips the check.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if db != nil {
			ctx, cancel := withTimeout(c)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				c.Logger().Warnf("health: database ping failed: %v", err)
				return c.String(http.StatusServiceUnavailable, "database unavailable")
			}
		}
		return c.String(http.StatusOK, "ok")
	}
}
