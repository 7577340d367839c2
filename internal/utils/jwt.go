package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// minKeyBytes is the HS256 key size; shorter secrets are padded.
const minKeyBytes = 32

// ErrInvalidToken is returned by Verify for any signature, algorithm or
// structural failure.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of both token types.  Access tokens carry Roles;
// refresh tokens carry SessionID.  Subject is the username.
type Claims struct {
	Type      string   `json:"type"`
	UserID    uint64   `json:"userId"`
	Roles     []string `json:"roles,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies HS256 tokens.  It holds no per-token state:
// everything needed to validate a token is inside the token.
type TokenCodec struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec builds a codec from the configured secret.  Secrets shorter
// than 256 bits are right-padded with '0' so the HMAC key is always at
// least 32 bytes.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	if len(secret) < minKeyBytes {
		secret += strings.Repeat("0", minKeyBytes-len(secret))
	}
	return &TokenCodec{
		key:        []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source.  Used by tests to move past expiry.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// NewSessionID returns a random identifier for a refresh-token session.
func NewSessionID() string { return uuid.NewString() }

// MintAccess signs an access token for subject with the given roles.
func (c *TokenCodec) MintAccess(subject string, roles []model.Role, userID uint64) (string, error) {
	return c.sign(Claims{
		Type:   TokenTypeAccess,
		UserID: userID,
		Roles:  model.RoleNames(roles),
	}, subject, c.accessTTL)
}

// MintRefresh signs a refresh token bound to sessionID.
func (c *TokenCodec) MintRefresh(subject string, userID uint64, sessionID string) (string, error) {
	return c.sign(Claims{
		Type:      TokenTypeRefresh,
		UserID:    userID,
		SessionID: sessionID,
	}, subject, c.refreshTTL)
}

func (c *TokenCodec) sign(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := c.now().UTC()
	claims.Subject = subject
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	// A random jti keeps two tokens minted in the same second distinct,
	// which matters because sessions are looked up by token hash.
	claims.ID = uuid.NewString()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and structure of raw and returns its claims.
// Expiry is not checked here; see IsAccessValid and
// IsRefreshValid.
func (c *TokenCodec) Verify(raw string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing exp or sub", ErrInvalidToken)
	}
	return &claims, nil
}

// IsAccessValid reports whether raw is a verified, unexpired access token.
func (c *TokenCodec) IsAccessValid(raw string) bool {
	return c.isValid(raw, TokenTypeAccess)
}

// IsRefreshValid reports whether raw is a verified, unexpired refresh token.
func (c *TokenCodec) IsRefreshValid(raw string) bool {
	return c.isValid(raw, TokenTypeRefresh)
}

func (c *TokenCodec) isValid(raw, typ string) bool {
	claims, err := c.Verify(raw)
	if err != nil {
		return false
	}
	return claims.Type == typ && !c.Expired(claims)
}

// Expired is a strict now > exp comparison with no skew allowance.
func (c *TokenCodec) Expired(claims *Claims) bool {
	return c.now().After(claims.ExpiresAt.Time)
}

// ParseAccess verifies raw as an unexpired access token and returns its
// claims.  It is what the bearer middleware uses.
func (c *TokenCodec) ParseAccess(raw string) (*Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess || c.Expired(claims) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh is ParseAccess for refresh tokens.
func (c *TokenCodec) ParseRefresh(raw string) (*Claims, error) {
	claims, err := c.Verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeRefresh || c.Expired(claims) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
