package utils

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// Password policy failures.  Callers wrap these into their own error kind.
var (
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters long")
	ErrPasswordNoDigit   = errors.New("password must contain at least one digit")
	ErrPasswordNoSpecial = errors.New("password must contain at least one special symbol")
)

// CheckPasswordStrength enforces at least 8 characters (runes, not bytes), at least one digit and at
// least one character outside [A-Za-z0-9].
func CheckPasswordStrength(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	var digit, special bool
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		default:
			special = true
		}
	}
	if !special {
		return ErrPasswordNoSpecial
	}
	if !digit {
		return ErrPasswordNoDigit
	}
	return nil
}

// BcryptHasher hashes passwords with bcrypt at a fixed cost.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of plain.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.
func (h BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
