// Package handler holds the HTTP handlers.  Handlers bind and validate
// the request, call a repository or service, and translate failures into
// {"error": msg} JSON with one status per error kind.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/service"
)

// requestTimeout bounds every store call a handler makes.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// Validator checks `validate` struct tags.  Field names in messages are
// the JSON names.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a validator to install as echo.Echo.Validator.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// describe renders validation failures as one field-level message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "gt":
			parts = append(parts, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// bind decodes the body into dst and validates it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", service.ErrInvalidInput)
	}
	if err := c.Validate(dst); err != nil {
		return fmt.Errorf("%w: %s", service.ErrInvalidInput, describe(err))
	}
	return nil
}

// pathID parses the named path parameter as a positive id.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrInvalidInput, name)
	}
	return id, nil
}

func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindCapacity:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict, service.KindState:
		return http.StatusConflict
	case service.KindAuth:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status and writes {"error": msg}.  Seat
// conflicts also carry the taken seats.  Anything unclassified is logged
// and answered with 500.
func writeError(c echo.Context, err error) error {
	var conflict *service.SeatConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "seats": conflict.Seats})
	}
	if k := service.KindOf(err); k != 0 {
		return c.JSON(statusOf(k), echo.Map{"error": err.Error()})
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrInUse.Msg})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrDuplicate.Msg})
	case errors.Is(err, repository.ErrMissingReference):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "referenced resource does not exist"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
	}
	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// missing turns a repository miss into a NotFound naming the row.
func missing(err error, what string, id uint64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", service.ErrNotFound, what, id)
	}
	return err
}
