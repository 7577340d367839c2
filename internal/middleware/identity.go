package middleware

// identity.go holds the authenticated caller as stored in the Echo context
// by JWTAuth, and the helpers other middleware and handlers use to read it.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

const identityKey = "identity"

// Identity is the caller described by a verified access token.
type Identity struct {
	UserID   uint64
	Username string
	Roles    []model.Role
}

// HasAny reports whether the identity holds at least one of roles.
func (id *Identity) HasAny(roles ...model.Role) bool {
	for _, have := range id.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func setIdentity(c echo.Context, id *Identity) { c.Set(identityKey, id) }

// CurrentIdentity returns the authenticated caller, if any.
func CurrentIdentity(c echo.Context) (*Identity, bool) {
	id, ok := c.Get(identityKey).(*Identity)
	return id, ok && id != nil
}

// userID returns the caller's user id as a string, or "guest" when no user
// is authenticated.
func userID(c echo.Context) string {
	if id, ok := CurrentIdentity(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "guest"
}
