package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// AuthHandler serves registration, login, token refresh and logout.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type sessionsResp struct {
	Count    int64               `json:"count"`
	Sessions []model.UserSession `json:"sessions"`
}

// Register: POST /auth/register.  Creates a ROLE_USER account; no tokens.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":  "User registered successfully",
		"username": u.Username,
		"roles":    model.RoleNames(u.Roles),
	})
}

// Login: POST /auth/login.  The session records c.RealIP(), so proxy
// headers count only as far as the echo IPExtractor trusts them.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Username, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh: POST /auth/refresh.  The presented token is spent.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout: POST /auth/logout.  The body is optional and the answer is
// always 200 unless the store fails.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := withTimeout(c)
	defer cancel()
	if err := h.Auth.Logout(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// LogoutAll: POST /auth/logout-all (authenticated).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	n, err := h.Auth.LogoutAll(ctx, id.Username)
	if err != nil {
		return writeError(c, err)
	}
	c.Logger().Infof("revoked %d sessions for %s", n, id.Username)
	return c.JSON(http.StatusOK, echo.Map{"message": "All sessions revoked successfully"})
}

// Me: GET /auth/me.  Anonymous callers get {authenticated:false}.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"authenticated": false})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"authenticated": true,
		"username":      id.Username,
		"roles":         model.RoleNames(id.Roles),
	})
}

// Sessions: GET /auth/sessions (authenticated).
func (h *AuthHandler) Sessions(c echo.Context) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, n, err := h.Auth.Sessions(ctx, id.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessionsResp{Count: n, Sessions: list})
}
