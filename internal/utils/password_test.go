package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{"short1", ErrPasswordTooShort},
		{"Password1", ErrPasswordNoSpecial},
		{"Password!", ErrPasswordNoDigit},
		{"Pass@123", nil},
		{"pässword1", nil},
		{"éééé1!", ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("Pass@123")
	require.NoError(t, err)
	assert.NotEqual(t, "Pass@123", hash)
	assert.True(t, h.Verify(hash, "Pass@123"))
	assert.False(t, h.Verify(hash, "Pass@124"))
}

func TestHashRefreshToken(t *testing.T) {
	// SHA-256("abc"), base64 encoded.
	assert.Equal(t, "ungWv48Bz+pBQUDeXa4iI7ADYaOWF3qctBD/YfIAFa0=", HashRefreshToken("abc"))
}
