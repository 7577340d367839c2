package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user holds at least one of the given roles.  It assumes
// JWTAuth ran earlier in the chain; a request without an identity is
// answered with 401 and a request with the wrong roles with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := CurrentIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			if !id.HasAny(roles...) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
