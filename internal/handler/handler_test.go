package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", fmt.Errorf("%w: title is required", service.ErrInvalidInput), http.StatusBadRequest, "title is required"},
		{"capacity", service.ErrSeatsExhausted, http.StatusBadRequest, "no seats available"},
		{"not found", fmt.Errorf("%w: ticket 4", service.ErrNotFound), http.StatusNotFound, "ticket 4"},
		{"conflict", service.ErrSeatTaken, http.StatusConflict, "seat is already taken"},
		{"state", service.ErrAlreadyCancelled, http.StatusConflict, "already cancelled"},
		{"auth", service.ErrInvalidToken, http.StatusUnauthorized, "invalid or expired token"},
		{"repo not found", repository.ErrNotFound, http.StatusNotFound, "not found"},
		{"repo conflict", repository.ErrConflict, http.StatusConflict, "still referenced"},
		{"repo duplicate", repository.ErrDuplicate, http.StatusConflict, "already exists"},
		{"repo missing reference", repository.ErrMissingReference, http.StatusBadRequest, "does not exist"},
		{"timeout", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "timed out"},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodGet, "")
			require.NoError(t, writeError(c, tt.err))
			testutil.AssertError(t, rec, tt.status, tt.msg)
		})
	}
}

func TestWriteErrorSeatConflict(t *testing.T) {
	c, rec := newContext(http.MethodPost, "")
	require.NoError(t, writeError(c, &service.SeatConflictError{Seats: []int{8, 3}}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error string `json:"error"`
		Seats []int  `json:"seats"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "seats are already taken: 8, 3", body.Error)
	assert.Equal(t, []int{8, 3}, body.Seats)
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	c, _ := newContext(http.MethodPost, `{"movieId": 1, "price": -2}`)
	var req screeningReq
	err := bind(c, &req)
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Contains(t, err.Error(), "hallId is required")
	assert.Contains(t, err.Error(), "startTime is required")
	assert.Contains(t, err.Error(), "price must be greater than 0")

	c, _ = newContext(http.MethodPost, `{not json`)
	err = bind(c, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestPathID(t *testing.T) {
	for _, raw := range []string{"0", "-1", "abc", ""} {
		c, _ := newContext(http.MethodGet, "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		_, err := pathID(c, "id")
		assert.ErrorIs(t, err, service.ErrInvalidInput, raw)
	}

	c, _ := newContext(http.MethodGet, "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	id, err := pathID(c, "id")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestLoginRecordsTrustedClientIP(t *testing.T) {
	repos, db := testutil.NewRepositories()
	codec := utils.NewTokenCodec("handler-test-secret", 15*time.Minute, time.Hour)
	auth := service.NewAuthService(repos.User, repos.Session, codec, utils.BcryptHasher{Cost: bcrypt.MinCost})
	_, err := auth.Register(context.Background(), "erin", "Pass@123")
	require.NoError(t, err)

	e := echo.New()
	e.Validator = NewValidator()
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.POST("/auth/login", NewAuthHandler(auth).Login)

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"public peer spoofing header", "192.0.2.10:4000", "203.0.113.7", "192.0.2.10"},
		{"no header", "192.0.2.11:4000", "", "192.0.2.11"},
		{"private proxy", "10.0.0.5:4000", "198.51.100.9, 203.0.113.7", "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login",
				strings.NewReader(`{"username":"erin","password":"Pass@123"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set(echo.HeaderXForwardedFor, tt.xff)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			sessions := db.Sessions()
			require.NotEmpty(t, sessions)
			assert.Equal(t, tt.want, sessions[len(sessions)-1].IPAddress)
		})
	}
}

func TestMissing(t *testing.T) {
	err := missing(repository.ErrNotFound, "hall", 7)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "not found: hall 7", err.Error())

	other := errors.New("boom")
	assert.Same(t, other, missing(other, "hall", 7))
}
