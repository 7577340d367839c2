// Package router registers the HTTP routes and the middleware chain of
// each route group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// Deps carries everything the routes need.  Redis may be nil, which turns
// rate limiting and response caching off.
type Deps struct {
	Auth    *handler.AuthHandler
	Catalog *handler.CatalogHandler
	Tickets *handler.TicketHandler
	Tokens  *utils.TokenCodec
	DB      handler.Pinger

	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

var (
	anyRole   = middleware.RequireRole(model.RoleUser, model.RoleAdmin)
	adminOnly = middleware.RequireRole(model.RoleAdmin)
)

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d)
	RegisterCatalog(e, d)
	RegisterTickets(e, d)
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth mounts /auth.  Register, login, refresh and logout are
// public and share a stricter rate limit; logout-all and sessions need an
// access token; me works for anonymous callers too.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	g := e.Group("/auth", middleware.NewTokenBucket(d.RateLimit.ForAuth(), d.Redis))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	g.GET("/me", a.Me, middleware.OptionalJWT(d.Tokens))
	g.POST("/logout-all", a.LogoutAll, middleware.JWTAuth(d.Tokens), anyRole)
	g.GET("/sessions", a.Sessions, middleware.JWTAuth(d.Tokens), anyRole)
}

// protected opens a group that needs an access token with any role.
// Role checks run before the cache so a hit is never served to a caller
// who could not read the resource.
func protected(e *echo.Echo, prefix string, d Deps, extra ...echo.MiddlewareFunc) *echo.Group {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.Tokens),
		anyRole,
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
	}
	return e.Group(prefix, append(mw, extra...)...)
}
