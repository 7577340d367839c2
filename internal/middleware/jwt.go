package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// bearer returns the raw token of an "Authorization: Bearer <token>"
// header, or "" when the header is absent or uses another scheme.
func bearer(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

func identityFrom(claims *utils.Claims) *Identity {
	id := &Identity{UserID: claims.UserID, Username: claims.Subject}
	for _, name := range claims.Roles {
		// Role names outside the closed set are dropped, never granted.
		if r, ok := model.ParseRole(name); ok {
			id.Roles = append(id.Roles, r)
		}
	}
	return id
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's Identity in the request context.  Refresh tokens
// and expired tokens are rejected with 401.
func JWTAuth(tokens *utils.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := tokens.ParseAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, identityFrom(claims))
			return next(c)
		}
	}
}

// OptionalJWT stores the Identity when a valid access token is present and
// otherwise lets the request through anonymously.
func OptionalJWT(tokens *utils.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearer(c); raw != "" {
				if claims, err := tokens.ParseAccess(raw); err == nil {
					setIdentity(c, identityFrom(claims))
				}
			}
			return next(c)
		}
	}
}
