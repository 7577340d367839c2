package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Minute, time.Hour)

	raw, err := codec.MintAccess("bob", []model.Role{model.RoleUser, model.RoleAdmin}, 42)
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Subject)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, []string{"ROLE_USER", "ROLE_ADMIN"}, claims.Roles)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.True(t, codec.IsAccessValid(raw))
	assert.False(t, codec.IsRefreshValid(raw))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret", time.Minute, time.Hour)
	sid := NewSessionID()

	raw, err := codec.MintRefresh("bob", 7, sid)
	require.NoError(t, err)

	claims, err := codec.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, sid, claims.SessionID)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Empty(t, claims.Roles)
	assert.True(t, codec.IsRefreshValid(raw))
	assert.False(t, codec.IsAccessValid(raw))
}

func TestExpiredTokensAreInvalidButStillVerify(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	codec := NewTokenCodec("secret", time.Minute, time.Hour).WithClock(func() time.Time { return base })

	raw, err := codec.MintAccess("bob", []model.Role{model.RoleUser}, 1)
	require.NoError(t, err)

	atExpiry := codec.WithClock(func() time.Time { return base.Add(time.Minute) })
	assert.True(t, atExpiry.IsAccessValid(raw), "exp is inclusive: now must be strictly after exp")

	later := codec.WithClock(func() time.Time { return base.Add(time.Minute + time.Second) })
	assert.False(t, later.IsAccessValid(raw))
	_, err = later.Verify(raw)
	assert.NoError(t, err)
}

func TestVerifyRejectsForeignOrMalformedTokens(t *testing.T) {
	codec := NewTokenCodec("secret", time.Minute, time.Hour)
	other := NewTokenCodec("another-secret", time.Minute, time.Hour)

	raw, err := other.MintAccess("bob", nil, 1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "bob", "type": "access"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong key": raw,
		"garbage":   "not-a-jwt",
		"empty":     "",
		"alg none":  none,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.Verify(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.False(t, codec.IsAccessValid(tok))
			assert.False(t, codec.IsRefreshValid(tok))
		})
	}
}

func TestShortSecretIsPadded(t *testing.T) {
	codec := NewTokenCodec("abc", time.Minute, time.Hour)
	assert.Len(t, codec.key, 32)
	assert.Equal(t, "abc00000000000000000000000000000", string(codec.key))

	long := NewTokenCodec("0123456789abcdef0123456789abcdef-extra", time.Minute, time.Hour)
	assert.Len(t, long.key, 38)
}

func TestTokensMintedTogetherDiffer(t *testing.T) {
	codec := NewTokenCodec("secret", time.Minute, time.Hour)
	a, err := codec.MintRefresh("bob", 1, "s")
	require.NoError(t, err)
	b, err := codec.MintRefresh("bob", 1, "s")
	require.NoError(t, err)
	assert.NotEqual(t, HashRefreshToken(a), HashRefreshToken(b))
}
