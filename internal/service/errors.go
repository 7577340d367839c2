package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a business-rule failure.  Handlers map kinds onto HTTP
// status codes; services never deal in status codes themselves.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindCapacity
	KindAuth
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindCapacity:
		return "capacity"
	case KindAuth:
		return "auth"
	case KindState:
		return "state"
	}
	return "unknown"
}

// Error is a classified failure with a human-readable message.  The
// package-level sentinels below are the only values; callers add detail
// with fmt.Errorf("%w: ...") and match with errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(k Kind, msg string) *Error { return &Error{Kind: k, Msg: msg} }

var (
	ErrDuplicateUser    = newError(KindConflict, "username already exists")
	ErrWeakPassword     = newError(KindValidation, "weak password")
	ErrAuthFailed       = newError(KindAuth, "invalid username or password")
	ErrInvalidToken     = newError(KindAuth, "invalid or expired token")
	ErrSessionNotFound  = newError(KindAuth, "session not found or no longer active")
	ErrUserNotFound     = newError(KindNotFound, "user not found")
	ErrNotFound         = newError(KindNotFound, "not found")
	ErrSeatsExhausted   = newError(KindCapacity, "no seats available for this screening")
	ErrSeatTaken        = newError(KindConflict, "seat is already taken")
	ErrSeatOutOfRange   = newError(KindCapacity, "seat number exceeds hall capacity")
	ErrSeatConflict     = newError(KindConflict, "seats are already taken")
	ErrDuplicateSeat    = newError(KindValidation, "duplicate seat numbers in request")
	ErrAlreadyCancelled = newError(KindState, "ticket is already cancelled")
	ErrScreeningStarted = newError(KindState, "screening has already started")
	ErrInvalidSeat      = newError(KindValidation, "seat number must be positive")
	ErrInvalidInput     = newError(KindValidation, "invalid input")
	ErrHallTooSmall     = newError(KindConflict, "hall capacity is below the seats already sold")
	ErrInUse            = newError(KindConflict, "resource is still referenced")
	ErrDuplicate        = newError(KindConflict, "resource already exists")
)

// SeatConflictError lists the requested seats that are already held by
// active tickets.  It matches ErrSeatConflict under errors.Is.
type SeatConflictError struct {
	Seats []int
}

func (e *SeatConflictError) Error() string {
	parts := make([]string, len(e.Seats))
	for i, s := range e.Seats {
		parts[i] = fmt.Sprint(s)
	}
	return fmt.Sprintf("%s: %s", ErrSeatConflict.Msg, strings.Join(parts, ", "))
}

func (e *SeatConflictError) Unwrap() error { return ErrSeatConflict }

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
