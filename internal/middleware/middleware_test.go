package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func newCodec() *utils.TokenCodec {
	return utils.NewTokenCodec("middleware-test-secret", 15*time.Minute, time.Hour)
}

func serve(t *testing.T, e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c echo.Context) error {
	id, ok := CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"anonymous": true})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id.Username, "id": id.UserID, "roles": id.Roles})
}

func TestJWTAuth(t *testing.T) {
	codec := newCodec()
	e := echo.New()
	e.GET("/p", whoAmI, JWTAuth(codec))

	access, err := codec.MintAccess("alice", []model.Role{model.RoleUser}, 7)
	require.NoError(t, err)
	refresh, err := codec.MintRefresh("alice", 7, utils.NewSessionID())
	require.NoError(t, err)
	expired, err := codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }).
		MintAccess("alice", []model.Role{model.RoleUser}, 7)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
		{"refresh token", refresh, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"valid", access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, e, http.MethodGet, "/p", tt.token)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	rec := serve(t, e, http.MethodGet, "/p", access)
	assert.JSONEq(t, `{"user":"alice","id":7,"roles":["ROLE_USER"]}`, rec.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	codec := newCodec()
	e := echo.New()
	e.GET("/me", whoAmI, OptionalJWT(codec))

	rec := serve(t, e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())

	rec = serve(t, e, http.MethodGet, "/me", "broken")
	assert.JSONEq(t, `{"anonymous":true}`, rec.Body.String())

	access, err := codec.MintAccess("bob", []model.Role{model.RoleAdmin, model.RoleUser}, 2)
	require.NoError(t, err)
	rec = serve(t, e, http.MethodGet, "/me", access)
	assert.JSONEq(t, `{"user":"bob","id":2,"roles":["ROLE_ADMIN","ROLE_USER"]}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	codec := newCodec()
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.DELETE("/admin", ok, JWTAuth(codec), RequireRole(model.RoleAdmin))
	e.GET("/any", ok, JWTAuth(codec), RequireRole(model.RoleUser, model.RoleAdmin))
	e.GET("/bare", ok, RequireRole(model.RoleUser))

	user, err := codec.MintAccess("u", []model.Role{model.RoleUser}, 1)
	require.NoError(t, err)
	admin, err := codec.MintAccess("a", []model.Role{model.RoleAdmin}, 2)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, serve(t, e, http.MethodDelete, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, serve(t, e, http.MethodDelete, "/admin", admin).Code)
	assert.Equal(t, http.StatusNoContent, serve(t, e, http.MethodGet, "/any", user).Code)
	assert.Equal(t, http.StatusNoContent, serve(t, e, http.MethodGet, "/any", admin).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, e, http.MethodGet, "/bare", "").Code)
}

func TestIdentityFromDropsUnknownRoles(t *testing.T) {
	id := identityFrom(&utils.Claims{UserID: 3, Roles: []string{"ROLE_USER", "ROLE_ROOT"}})
	assert.Equal(t, []model.Role{model.RoleUser}, id.Roles)
	assert.False(t, id.HasAny(model.RoleAdmin))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.9:user:guest:route:POST /auth/login", buildRateKey(cfg, c))

	setIdentity(c, &Identity{UserID: 42})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:42", buildRateKey(cfg, c))

	auth := config.RateLimitConfig{Prefix: "rl", AuthCapacity: 5}.ForAuth()
	assert.Equal(t, "rl:auth:ip:10.0.0.9:route:POST /auth/login", buildRateKey(auth, c))
}

func TestParseBucket(t *testing.T) {
	allowed, remaining, retry, ok := parseBucket([]interface{}{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.True(t, allowed)
	assert.Equal(t, int64(4), remaining)
	assert.Zero(t, retry)

	allowed, _, retry, ok = parseBucket([]interface{}{int64(0), int64(0), int64(750)})
	require.True(t, ok)
	assert.False(t, allowed)
	assert.Equal(t, int64(750), retry)

	_, _, _, ok = parseBucket("nope")
	assert.False(t, ok)
}

func TestRedisFeaturesPassThroughWithoutClient(t *testing.T) {
	e := echo.New()
	hits := 0
	h := func(c echo.Context) error {
		hits++
		return c.String(http.StatusOK, "ok")
	}
	rl := config.RateLimitConfig{Enabled: true, Capacity: 1}
	cc := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	e.GET("/x", h, NewTokenBucket(rl, nil), NewRedisCache(cc, nil, "movies"))

	for i := 0; i < 3; i++ {
		rec := serve(t, e, http.MethodGet, "/x", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, hits)
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	key := func(id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/movies/"+id, nil), httptest.NewRecorder())
		c.SetPath("/movies/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKey(cfg, "movies", c)
	}
	assert.NotEqual(t, key("1"), key("2"))
	assert.Equal(t, key("1"), key("1"))
	assert.Contains(t, key("1"), "cache:movies:")
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("ab"))
	assert.False(t, cw.over)
	_, _ = cw.Write([]byte("cde"))
	assert.True(t, cw.over)
	assert.Equal(t, "abcde", rec.Body.String())
}
